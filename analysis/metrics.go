package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// DefaultFFTSize is the frame length used by the spectral measurements.
const DefaultFFTSize = 4096

// Metrics summarises one rendered voice or noise buffer.
type Metrics struct {
	SampleRate int `json:"sample_rate"`
	Frames     int `json:"frames"`

	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
	CrestDB     float64 `json:"crest_db"`
	DecayDBPerS float64 `json:"decay_db_per_s"`
	CentroidHz  float64 `json:"centroid_hz"`
	// TailFrames counts frames until the envelope stays 60 dB below its peak.
	TailFrames int `json:"tail_frames"`
}

// Measure computes level, decay and spectral metrics for x.
func Measure(x []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate: sampleRate,
		Frames:     len(x),
	}
	if sampleRate <= 0 || len(x) == 0 {
		m.DecayDBPerS = math.NaN()
		return m
	}

	m.RMS = RMS(x)
	m.Peak = Peak(x)
	if m.RMS > 0 {
		m.CrestDB = linToDB(m.Peak) - linToDB(m.RMS)
	}
	if !isFinite(m.CrestDB) {
		m.CrestDB = 0
	}

	const frame, hop = 256, 128
	env := RMSEnvelope(x, frame, hop)
	m.DecayDBPerS = DecaySlopeDBPerS(env, float64(hop)/float64(sampleRate))
	m.TailFrames = tailFrames(env, hop, frame, len(x))
	m.CentroidHz = SpectralCentroid(x, sampleRate)
	return m
}

// ToFloat64 widens a float32 buffer.
func ToFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Peak returns the largest absolute sample.
func Peak(x []float64) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

// RMSEnvelope returns frame RMS values taken every hop samples.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = RMS(x[start : start+frame])
	}
	return out
}

// Spectrum returns the Hann-windowed magnitude spectrum of x averaged over
// frames of fftSize samples with 50% overlap. Shorter input is zero padded.
func Spectrum(x []float64, fftSize int) ([]float64, error) {
	if fftSize < 16 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size %d must be a power of two >= 16", fftSize)
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	hann := window.Generate(window.TypeHann, fftSize)
	buf := make([]float64, fftSize)
	spec := make([]complex128, fftSize/2+1)
	avg := make([]float64, fftSize/2+1)
	hop := fftSize / 2

	frames := 0
	for pos := 0; pos == 0 || pos+fftSize <= len(x); pos += hop {
		for i := range buf {
			v := 0.0
			if pos+i < len(x) {
				v = x[pos+i]
			}
			buf[i] = v * hann[i]
		}
		plan.Forward(spec, buf)
		for k := range avg {
			avg[k] += cmplx.Abs(spec[k])
		}
		frames++
	}
	for k := range avg {
		avg[k] /= float64(frames)
	}
	return avg, nil
}

// SpectralCentroid returns the power-weighted mean frequency of x in Hz.
func SpectralCentroid(x []float64, sampleRate int) float64 {
	mag, err := Spectrum(x, DefaultFFTSize)
	if err != nil || sampleRate <= 0 {
		return 0
	}
	binHz := float64(sampleRate) / DefaultFFTSize
	var num, den float64
	for k := 1; k < len(mag); k++ {
		p := mag[k] * mag[k]
		num += float64(k) * binHz * p
		den += p
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

// BandRMS estimates the RMS of x restricted to [loHz, hiHz] from the share of
// spectral power inside the band.
func BandRMS(x []float64, sampleRate int, loHz, hiHz float64) float64 {
	mag, err := Spectrum(x, DefaultFFTSize)
	if err != nil || sampleRate <= 0 || hiHz <= loHz {
		return 0
	}
	binHz := float64(sampleRate) / DefaultFFTSize
	var in, total float64
	for k := 1; k < len(mag); k++ {
		p := mag[k] * mag[k]
		total += p
		f := float64(k) * binHz
		if f >= loHz && f <= hiHz {
			in += p
		}
	}
	if total <= 0 {
		return 0
	}
	return RMS(x) * math.Sqrt(in/total)
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// DecaySlopeDBPerS fits a line to the envelope from its peak down to 60 dB
// below it. NaN when the envelope is too short.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := linToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func tailFrames(env []float64, hop, frame, total int) int {
	if len(env) == 0 {
		return total
	}
	peak := 0.0
	for _, v := range env {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return 0
	}
	threshold := peak * 1e-3
	last := -1
	for i, v := range env {
		if v >= threshold {
			last = i
		}
	}
	n := last*hop + frame
	if n > total {
		n = total
	}
	return n
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
