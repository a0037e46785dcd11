package dsp

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// ShapeLength is the number of samples in every waveform table.
const ShapeLength = 1024

// Shape selects a waveform table.
type Shape int

const (
	Sine Shape = iota
	Triangle
	Saw
	Square
	Random
	numShapes
)

var shapeNames = [numShapes]string{"sine", "triangle", "saw", "square", "random"}

func (s Shape) String() string {
	if s < 0 || s >= numShapes {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// ParseShape resolves a shape by name.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown shape %q", name)
}

// Shapes lists every waveform in table order.
func Shapes() []Shape {
	out := make([]Shape, numShapes)
	for i := range out {
		out[i] = Shape(i)
	}
	return out
}

// shapeTables are built once and never written afterwards. Each table has a
// guard entry equal to its first sample.
var shapeTables = buildShapeTables()

func buildShapeTables() (t [numShapes][ShapeLength + 1]float32) {
	for i := 0; i < ShapeLength; i++ {
		x := float64(i) / ShapeLength
		t[Sine][i] = float32(math.Sin(2 * math.Pi * x))
		switch {
		case x < 0.25:
			t[Triangle][i] = float32(4 * x)
		case x < 0.75:
			t[Triangle][i] = float32(2 - 4*x)
		default:
			t[Triangle][i] = float32(4*x - 4)
		}
		t[Saw][i] = float32(2*x - 1)
		if x < 0.5 {
			t[Square][i] = 1
		} else {
			t[Square][i] = -1
		}
	}

	// Smoothed sample-and-hold from a fixed seed: 32 random steps joined by
	// raised-cosine segments.
	const steps = 32
	rng := rand.New(rand.NewPCG(0x5eed, 0xd1ce))
	var points [steps]float64
	for i := range points {
		points[i] = rng.Float64()*2 - 1
	}
	points[0], points[steps/2] = 0.9, -0.9
	seg := ShapeLength / steps
	for i := 0; i < ShapeLength; i++ {
		k := i / seg
		frac := float64(i%seg) / float64(seg)
		w := 0.5 - 0.5*math.Cos(math.Pi*frac)
		a := points[k]
		b := points[(k+1)%steps]
		t[Random][i] = float32(a + (b-a)*w)
	}

	for s := range t {
		t[s][ShapeLength] = t[s][0]
	}
	return t
}

// Table returns a copy of the waveform table for s.
func (s Shape) Table() []float32 {
	if s < 0 || s >= numShapes {
		s = Sine
	}
	out := make([]float32, ShapeLength)
	copy(out, shapeTables[s][:ShapeLength])
	return out
}

// At reads the waveform at phase (cycles) with linear interpolation.
func (s Shape) At(phase float32) float32 {
	if s < 0 || s >= numShapes {
		s = Sine
	}
	return lookup(shapeTables[s][:], ShapeLength, phase)
}

// Oscillator is a table oscillator whose retrigger crossfades the waveform
// output of the previous phase into the restarted one.
type Oscillator struct {
	shape Shape
	phase Phase
	ghost Phase

	blendLeft int
	blendLen  int
}

// NewOscillator returns an oscillator reading shape.
func NewOscillator(shape Shape) *Oscillator {
	return &Oscillator{shape: shape}
}

// SetShape changes the waveform. Takes effect on the next sample.
func (o *Oscillator) SetShape(shape Shape) { o.shape = shape }

// Shape returns the current waveform.
func (o *Oscillator) Shape() Shape { return o.shape }

// Phase returns the oscillator's phase accumulator.
func (o *Oscillator) Phase() *Phase { return &o.phase }

// Retrigger restarts the phase at zero. When blendSamples > 0 the previous
// phase keeps running and its output fades out over that many samples.
func (o *Oscillator) Retrigger(blendSamples int) {
	if blendSamples > 0 {
		o.ghost = o.phase
		o.blendLen = blendSamples
		o.blendLeft = blendSamples
	} else {
		o.blendLeft = 0
	}
	o.phase.Reset()
}

// Next advances by increment (cycles per sample) and returns the sample at
// the new phase, offset by pm cycles of phase modulation.
func (o *Oscillator) Next(increment, pm float32) float32 {
	out := o.shape.At(o.phase.Next(increment) + pm)
	if o.blendLeft > 0 {
		old := o.shape.At(o.ghost.Next(increment) + pm)
		w := float32(o.blendLeft) / float32(o.blendLen+1)
		o.blendLeft--
		out = old*w + out*(1-w)
	}
	return out
}

// Blending reports whether a retrigger crossfade is in progress.
func (o *Oscillator) Blending() bool { return o.blendLeft > 0 }

// Reset clears phase and crossfade state.
func (o *Oscillator) Reset() {
	o.phase.Reset()
	o.ghost.Reset()
	o.blendLeft = 0
}
