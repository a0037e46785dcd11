package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestMeasureDecaySineReportsDecaySlope(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.2)
	m := Measure(x, sr)

	want := -20.0 * math.Log10(math.E) / 0.2
	if math.Abs(m.DecayDBPerS-want) > 5 {
		t.Fatalf("decay slope mismatch: got=%f want=%f", m.DecayDBPerS, want)
	}
	if m.TailFrames <= 0 || m.TailFrames >= len(x) {
		t.Fatalf("expected tail inside the buffer, got %d of %d", m.TailFrames, len(x))
	}
	if m.Peak < 0.9 || m.Peak > 1.0 {
		t.Fatalf("unexpected peak %f", m.Peak)
	}
	if m.CrestDB <= 0 {
		t.Fatalf("expected positive crest factor, got %f", m.CrestDB)
	}
}

func TestMeasureEmptyInput(t *testing.T) {
	m := Measure(nil, 48000)
	if m.RMS != 0 || m.Frames != 0 {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
	if !math.IsNaN(m.DecayDBPerS) {
		t.Fatalf("expected NaN decay slope for empty input, got %f", m.DecayDBPerS)
	}
}

func TestSpectralCentroidFindsSineFrequency(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 1000.0, 1.0, 1e9)
	got := SpectralCentroid(x, sr)
	if math.Abs(got-1000) > 30 {
		t.Fatalf("centroid mismatch: got=%f want=1000", got)
	}
}

func TestSpectralCentroidOrdersLowAndHighSines(t *testing.T) {
	sr := 48000
	low := SpectralCentroid(makeDecaySine(sr, 200.0, 0.5, 1e9), sr)
	high := SpectralCentroid(makeDecaySine(sr, 5000.0, 0.5, 1e9), sr)
	if low >= high {
		t.Fatalf("expected low < high centroid: low=%f high=%f", low, high)
	}
}

func TestSpectrumRejectsInvalidSize(t *testing.T) {
	for _, n := range []int{0, 8, 1000} {
		if _, err := Spectrum(make([]float64, 64), n); err == nil {
			t.Fatalf("expected error for fft size %d", n)
		}
	}
}

func TestBandRMSOfWhiteNoiseScalesWithBandwidth(t *testing.T) {
	sr := 48000
	x := randomSignal(1<<16, 3)
	full := RMS(x)
	half := BandRMS(x, sr, 0, float64(sr)/4)
	want := full * math.Sqrt(0.5)
	if math.Abs(half-want)/want > 0.1 {
		t.Fatalf("band rms mismatch: got=%f want=%f", half, want)
	}
	if BandRMS(x, sr, 1000, 500) != 0 {
		t.Fatalf("expected zero for inverted band")
	}
}

func TestRMSEnvelopeFrameCount(t *testing.T) {
	env := RMSEnvelope(make([]float64, 1024), 256, 128)
	if len(env) != 7 {
		t.Fatalf("envelope length mismatch: got=%d want=7", len(env))
	}
	if RMSEnvelope(make([]float64, 100), 256, 128) != nil {
		t.Fatalf("expected nil envelope for short input")
	}
}

func TestToFloat64(t *testing.T) {
	got := ToFloat64([]float32{0.5, -1})
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Fatalf("unexpected conversion: %v", got)
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		env := math.Exp(-t / decaySec)
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}
