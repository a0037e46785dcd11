package dsp

import (
	"math"
	"math/rand"
	"testing"
)

func impulseThrough(f *FractionalDelay, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		var in float32
		if i == 0 {
			in = 1
		}
		out[i] = f.Process(in, 0, 0)
	}
	return out
}

func TestFractionalDelayIntegerImpulse(t *testing.T) {
	f := NewFractionalDelay(64)
	f.SetDelaySamples(10)
	f.Reset()

	out := impulseThrough(f, 32)
	for i, v := range out {
		var want float32
		if i == 10 {
			want = 1
		}
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Fatalf("sample %d: got=%f want=%f", i, v, want)
		}
	}
}

func TestFractionalDelayHalfSampleSplitsImpulse(t *testing.T) {
	f := NewFractionalDelay(64)
	f.SetDelaySamples(10.5)
	f.Reset()

	out := impulseThrough(f, 32)
	if math.Abs(float64(out[10]-0.5)) > 1e-6 || math.Abs(float64(out[11]-0.5)) > 1e-6 {
		t.Fatalf("expected 0.5/0.5 split, got %f/%f", out[10], out[11])
	}
}

func TestFractionalDelayCubicExactAtInteger(t *testing.T) {
	f := NewFractionalDelay(64)
	f.SetInterpolation(Cubic)
	f.SetDelaySamples(12)
	f.Reset()

	out := impulseThrough(f, 32)
	if math.Abs(float64(out[12]-1)) > 1e-6 {
		t.Fatalf("cubic read at integer delay: got=%f want=1", out[12])
	}
	if math.Abs(float64(out[11])) > 1e-6 || math.Abs(float64(out[13])) > 1e-6 {
		t.Fatalf("cubic read leaked into neighbours: %f %f", out[11], out[13])
	}
}

func TestFractionalDelayClampsRange(t *testing.T) {
	f := NewFractionalDelay(100)
	f.SetDelaySamples(0.5)
	if f.DelaySamples() != minDelaySamples {
		t.Fatalf("short delay not clamped: got=%f", f.DelaySamples())
	}
	f.SetDelaySamples(1e6)
	if f.DelaySamples() != f.MaxDelay() {
		t.Fatalf("long delay not clamped: got=%f want=%f", f.DelaySamples(), f.MaxDelay())
	}
	f.SetDelaySamples(float32(math.NaN()))
	if f.DelaySamples() != f.MaxDelay() {
		t.Fatalf("NaN delay should be ignored, got %f", f.DelaySamples())
	}
}

func TestFractionalDelayStaysBounded(t *testing.T) {
	f := NewStringDelay(48000, 40)
	f.SetFrequency(110, 48000)
	f.SetDispersion(0.5)
	f.Reset()
	f.Excite(1, 0.3)

	out := make([]float32, 48000)
	for i := range out {
		out[i] = f.Process(0, MaxFeedback, 0.2)
	}
	if !allFinite(out) {
		t.Fatalf("delay produced non-finite output")
	}
	if m := maxAbs(out); m > 2 || m == 0 {
		t.Fatalf("delay output out of range: peak=%f", m)
	}
}

func TestFractionalDelayResetClearsTail(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	f := NewStringDelay(48000, 50)
	f.SetFrequency(200, 48000)
	for _, x := range randomBuffer(rng, 4096, 1) {
		f.Process(x, 0.99, 0.1)
	}
	f.Reset()
	for i := 0; i < 4096; i++ {
		if v := f.Process(0, 0.99, 0.1); math.Abs(float64(v)) > 1e-5 {
			t.Fatalf("expected silence after reset at %d: %f", i, v)
		}
	}
}

func TestFractionalDelayGlideIsSmooth(t *testing.T) {
	f := NewFractionalDelay(256)
	f.SetDelaySamples(48.3)
	f.Reset()

	in := sineBuffer(4000, 100, 48000)
	out := make([]float32, len(in))
	for i := 0; i < 2000; i++ {
		out[i] = f.Process(in[i], 0, 0)
	}
	f.SetDelaySamples(48.31)
	for i := 2000; i < len(in); i++ {
		out[i] = f.Process(in[i], 0, 0)
	}
	for i := 100; i < len(out); i++ {
		if d := math.Abs(float64(out[i] - out[i-1])); d > 0.05 {
			t.Fatalf("discontinuity at %d: %f", i, d)
		}
	}
}

func TestFractionalDelayTuning(t *testing.T) {
	const sr = 48000
	for _, hz := range []float32{110, 220, 440} {
		f := NewStringDelay(sr, 40)
		f.SetFrequency(hz, sr)
		f.Reset()
		f.Excite(1, 0.3)

		out := make([]float32, sr)
		for i := range out {
			out[i] = f.Process(0, 0.995, 0.3)
		}
		got := measureFundamentalFreq(out, sr)
		if math.Abs(float64(got-hz)) > float64(hz)*0.02 {
			t.Fatalf("tuning mismatch at %.0f Hz: got=%.2f", hz, got)
		}
		if math.Abs(float64(f.Frequency(sr)-hz)) > 1e-2 {
			t.Fatalf("Frequency() mismatch: got=%f want=%f", f.Frequency(sr), hz)
		}
	}
}

func TestFractionalDelayProcessDoesNotAllocate(t *testing.T) {
	f := NewStringDelay(48000, 50)
	f.SetInterpolation(Cubic)
	allocs := testing.AllocsPerRun(50, func() {
		for i := 0; i < 256; i++ {
			f.Process(0.1, 0.9, 0.2)
		}
	})
	if allocs != 0 {
		t.Fatalf("expected zero allocations, got %f", allocs)
	}
}
