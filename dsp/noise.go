package dsp

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Colour selects the spectral slope of a Noise generator.
type Colour int32

const (
	White Colour = iota
	Pink
	Brown
	Blue
	Violet
	numColours
)

// TargetRMS is the band-limited RMS every colour is normalised to.
const TargetRMS = 0.2

// Calibration band: loudness is matched between these edges so that colours
// with most of their energy near DC or Nyquist still sound equally loud.
const (
	CalibrationLoCut = 50.0
	CalibrationHiCut = 11000.0

	calibrationSamples = 1 << 15
	calibrationSettle  = 4096
	brownLeak          = 0.98
	brownInput         = 0.1
	dcBlockHz          = 20.0
)

var colourNames = [numColours]string{"white", "pink", "brown", "blue", "violet"}

func (c Colour) String() string {
	if c < 0 || c >= numColours {
		return fmt.Sprintf("colour(%d)", int(c))
	}
	return colourNames[c]
}

// ParseColour resolves a colour by name.
func ParseColour(name string) (Colour, error) {
	for i, n := range colourNames {
		if n == name {
			return Colour(i), nil
		}
	}
	return White, fmt.Errorf("unknown colour %q", name)
}

// Colours lists every colour.
func Colours() []Colour {
	out := make([]Colour, numColours)
	for i := range out {
		out[i] = Colour(i)
	}
	return out
}

// shaper holds the filter state for every colour so a colour switch does not
// need to re-warm a filter.
type shaper struct {
	b         [7]float32
	brown     float32
	dcBlock   biquad.Section
	prevPink  float32
	prevWhite float32
}

func newShaper(sampleRate int) shaper {
	return shaper{
		dcBlock: biquad.Section{Coefficients: design.Highpass(dcBlockHz, math.Sqrt2/2, float64(sampleRate))},
	}
}

func (s *shaper) next(c Colour, white float32) float32 {
	// Pink state advances regardless of colour; blue is derived from it.
	b := &s.b
	b[0] = 0.99886*b[0] + white*0.0555179
	b[1] = 0.99332*b[1] + white*0.0750759
	b[2] = 0.96900*b[2] + white*0.1538520
	b[3] = 0.86650*b[3] + white*0.3104856
	b[4] = 0.55000*b[4] + white*0.5329522
	b[5] = -0.7616*b[5] - white*0.0168980
	pink := b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + white*0.5362
	b[6] = white * 0.115926
	for i := range b {
		b[i] = FlushDenormals(b[i])
	}

	var out float32
	switch c {
	case Pink:
		out = pink
	case Brown:
		s.brown = FlushDenormals(s.brown*brownLeak + white*brownInput)
		out = float32(s.dcBlock.ProcessSample(float64(s.brown)))
	case Blue:
		out = pink - s.prevPink
	case Violet:
		out = white - s.prevWhite
	default:
		out = white
	}
	s.prevPink = pink
	s.prevWhite = white
	return out
}

var calibrations sync.Map // sample rate -> [numColours]float32

// calibrate measures each colour's band-limited RMS once per sample rate and
// returns the gains that bring it to TargetRMS.
func calibrate(sampleRate int) [numColours]float32 {
	if g, ok := calibrations.Load(sampleRate); ok {
		return g.([numColours]float32)
	}
	var gains [numColours]float32
	sr := float64(sampleRate)
	hiCut := math.Min(CalibrationHiCut, 0.45*sr)
	for c := White; c < numColours; c++ {
		sh := newShaper(sampleRate)
		rng := rand.NewPCG(1, uint64(c)+1)
		band := biquad.NewChain([]biquad.Coefficients{
			design.Highpass(CalibrationLoCut, math.Sqrt2/2, sr),
			design.Lowpass(hiCut, math.Sqrt2/2, sr),
		})
		var sum float64
		for i := 0; i < calibrationSettle+calibrationSamples; i++ {
			y := band.ProcessSample(float64(sh.next(c, uniform(rng))))
			if i >= calibrationSettle {
				sum += y * y
			}
		}
		rms := math.Sqrt(sum / calibrationSamples)
		if rms <= 0 || math.IsNaN(rms) {
			gains[c] = 1
			continue
		}
		gains[c] = float32(TargetRMS / rms)
	}
	calibrations.Store(sampleRate, gains)
	return gains
}

func uniform(rng *rand.PCG) float32 {
	return float32(rng.Uint64()>>40)/(1<<24)*2 - 1
}

// Noise generates coloured noise normalised to TargetRMS.
type Noise struct {
	colour atomic.Int32
	rng    *rand.PCG
	sh     shaper
	gains  [numColours]float32
	trims  [numColours]float32
}

// NewNoise creates a generator for sampleRate seeded with seed.
func NewNoise(sampleRate int, seed uint64) *Noise {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	n := &Noise{
		rng:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		sh:    newShaper(sampleRate),
		gains: calibrate(sampleRate),
	}
	for i := range n.trims {
		n.trims[i] = 1
	}
	return n
}

// SetColour selects the colour used by the next Fill. Safe to call from a
// control goroutine.
func (n *Noise) SetColour(c Colour) {
	if c < 0 || c >= numColours {
		c = White
	}
	n.colour.Store(int32(c))
}

// Colour returns the selected colour.
func (n *Noise) Colour() Colour { return Colour(n.colour.Load()) }

// Gain returns the calibrated output gain for c, including its trim.
func (n *Noise) Gain(c Colour) float32 {
	if c < 0 || c >= numColours {
		return 0
	}
	return n.gains[c] * n.trims[c]
}

// SetTrim scales the calibrated gain of c. Control-rate, not concurrent with
// Fill.
func (n *Noise) SetTrim(c Colour, trim float32) {
	if c < 0 || c >= numColours || !IsFinite(trim) || trim < 0 {
		return
	}
	n.trims[c] = trim
}

// Next returns one sample of the selected colour.
func (n *Noise) Next() float32 {
	c := n.Colour()
	return n.sh.next(c, uniform(n.rng)) * n.gains[c] * n.trims[c]
}

// Fill writes length samples starting at offset. The range is clipped to buf.
func (n *Noise) Fill(buf []float32, offset, length int) {
	if offset < 0 {
		length += offset
		offset = 0
	}
	if offset+length > len(buf) {
		length = len(buf) - offset
	}
	if length <= 0 {
		return
	}
	c := n.Colour()
	g := n.gains[c] * n.trims[c]
	for i := offset; i < offset+length; i++ {
		buf[i] = n.sh.next(c, uniform(n.rng)) * g
	}
}

// Reset clears the shaping filters without reseeding.
func (n *Noise) Reset() {
	n.sh.b = [7]float32{}
	n.sh.brown = 0
	n.sh.dcBlock.Reset()
	n.sh.prevPink = 0
	n.sh.prevWhite = 0
}
