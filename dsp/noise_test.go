package dsp

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-drums/analysis"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

func renderNoise(c Colour, n int, seed uint64) []float32 {
	gen := NewNoise(48000, seed)
	gen.SetColour(c)
	buf := make([]float32, n)
	gen.Fill(buf, 0, n)
	return buf
}

func TestNoiseRawLevelIsSane(t *testing.T) {
	for _, c := range Colours() {
		buf := renderNoise(c, 16384, 7)
		if !allFinite(buf) {
			t.Fatalf("%s: non-finite output", c)
		}
		rms := RMS(buf)
		if rms < 1e-6 || rms > 1 {
			t.Fatalf("%s: raw rms out of range: %f", c, rms)
		}
	}
}

func TestNoiseBandLimitedLevelMatchesTarget(t *testing.T) {
	const sr = 48000
	for _, c := range Colours() {
		buf := renderNoise(c, 16384+4096, 11)
		band := biquad.NewChain([]biquad.Coefficients{
			design.Highpass(CalibrationLoCut, math.Sqrt2/2, sr),
			design.Lowpass(CalibrationHiCut, math.Sqrt2/2, sr),
		})
		var sum float64
		for i, x := range buf {
			y := band.ProcessSample(float64(x))
			if i >= 4096 {
				sum += y * y
			}
		}
		rms := math.Sqrt(sum / 16384)
		if math.Abs(rms-TargetRMS) > 0.05 {
			t.Fatalf("%s: band rms mismatch: got=%f want=%f", c, rms, TargetRMS)
		}
	}
}

func TestNoiseColourSpectralOrdering(t *testing.T) {
	const sr = 48000
	centroid := make(map[Colour]float64)
	for _, c := range Colours() {
		buf := renderNoise(c, 1<<15, 5)
		centroid[c] = analysis.SpectralCentroid(analysis.ToFloat64(buf), sr)
	}

	order := []Colour{Brown, Pink, White, Violet}
	for i := 1; i < len(order); i++ {
		lo, hi := order[i-1], order[i]
		if centroid[lo] >= centroid[hi] {
			t.Fatalf("expected %s (%.0f Hz) below %s (%.0f Hz)", lo, centroid[lo], hi, centroid[hi])
		}
	}
	if centroid[White] >= centroid[Blue] {
		t.Fatalf("expected white (%.0f Hz) below blue (%.0f Hz)", centroid[White], centroid[Blue])
	}
}

func TestNoiseIsDeterministicPerSeed(t *testing.T) {
	a := renderNoise(Pink, 512, 99)
	b := renderNoise(Pink, 512, 99)
	c := renderNoise(Pink, 512, 100)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatalf("different seeds produced identical output")
	}
}

func TestNoiseFillClipsRange(t *testing.T) {
	gen := NewNoise(48000, 1)
	buf := make([]float32, 8)
	for i := range buf {
		buf[i] = 42
	}
	gen.Fill(buf, 6, 10)
	for i := 0; i < 6; i++ {
		if buf[i] != 42 {
			t.Fatalf("sample %d overwritten outside range", i)
		}
	}
	if buf[6] == 42 || buf[7] == 42 {
		t.Fatalf("expected samples 6 and 7 to be written")
	}

	for i := range buf {
		buf[i] = 42
	}
	gen.Fill(buf, -2, 4)
	if buf[0] == 42 || buf[1] == 42 || buf[2] != 42 {
		t.Fatalf("negative offset clip mismatch: %v", buf[:3])
	}
	gen.Fill(buf, 9, 3)
	gen.Fill(nil, 0, 16)
}

func TestNoiseInvalidColourFallsBackToWhite(t *testing.T) {
	gen := NewNoise(48000, 1)
	gen.SetColour(Violet)
	gen.SetColour(Colour(42))
	if gen.Colour() != White {
		t.Fatalf("expected white fallback, got %s", gen.Colour())
	}
	if gen.Gain(Colour(-1)) != 0 {
		t.Fatalf("expected zero gain for invalid colour")
	}
}

func TestNoiseTrimScalesGain(t *testing.T) {
	gen := NewNoise(48000, 1)
	base := gen.Gain(Pink)
	gen.SetTrim(Pink, 0.5)
	if got := gen.Gain(Pink); math.Abs(float64(got-base*0.5)) > 1e-6 {
		t.Fatalf("trim mismatch: got=%f want=%f", got, base*0.5)
	}
	gen.SetTrim(Pink, -1)
	if got := gen.Gain(Pink); math.Abs(float64(got-base*0.5)) > 1e-6 {
		t.Fatalf("negative trim should be ignored, got %f", got)
	}
}

func TestParseColour(t *testing.T) {
	for _, c := range Colours() {
		got, err := ParseColour(c.String())
		if err != nil || got != c {
			t.Fatalf("round trip %s: got=%v err=%v", c, got, err)
		}
	}
	if _, err := ParseColour("grey"); err == nil {
		t.Fatalf("expected error for unknown colour")
	}
}

func TestNoiseFillDoesNotAllocate(t *testing.T) {
	gen := NewNoise(48000, 3)
	gen.SetColour(Brown)
	buf := make([]float32, 256)
	allocs := testing.AllocsPerRun(50, func() {
		gen.Fill(buf, 0, len(buf))
	})
	if allocs != 0 {
		t.Fatalf("expected zero allocations, got %f", allocs)
	}
}
