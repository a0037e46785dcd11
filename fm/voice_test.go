package fm

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
)

const testSampleRate = 48000

func newTestVoice(t *testing.T, opCount, index int) *Voice {
	t.Helper()
	a, err := Lookup(opCount, index)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	v, err := NewVoice(testSampleRate, a)
	if err != nil {
		t.Fatalf("NewVoice: %v", err)
	}
	return v
}

func TestVoiceOutputIsFiniteAndBounded(t *testing.T) {
	for _, opCount := range []int{4, 6} {
		for i := 0; i < Count(opCount); i++ {
			v := newTestVoice(t, opCount, i)
			for op := 0; op < opCount; op++ {
				o := v.Operator(op)
				o.Feedback = 1
				o.Ratio = RatioAt(op * 7)
				v.SetOperator(op, o)
			}
			v.SetIndex(MaxIndex)
			v.Trigger()
			buf := make([]float32, 4096)
			if n := v.Process(buf, 220); n != len(buf) {
				t.Fatalf("%d-op algorithm %d: rendered %d of %d frames", opCount, i+1, n, len(buf))
			}
			if !allFinite(buf) {
				t.Fatalf("%d-op algorithm %d produced non-finite output", opCount, i+1)
			}
			if peak := maxAbs(buf); peak > 1.0001 || peak < 1e-3 {
				t.Fatalf("%d-op algorithm %d: peak=%f", opCount, i+1, peak)
			}
		}
	}
}

func TestVoiceIdleIsSilent(t *testing.T) {
	v := newTestVoice(t, 4, 0)
	buf := []float32{1, 1, 1, 1}
	if n := v.Process(buf, 220); n != 0 {
		t.Fatalf("idle voice rendered %d frames", n)
	}
	if maxAbs(buf) != 0 {
		t.Fatalf("idle voice should zero its buffer")
	}
}

func TestVoiceEndsAfterEnvelope(t *testing.T) {
	v := newTestVoice(t, 4, 4)
	for op := 0; op < 4; op++ {
		o := v.Operator(op)
		o.Env = envelope.FromMs(testSampleRate, 1, 50)
		v.SetOperator(op, o)
	}
	v.Trigger()
	buf := make([]float32, 256)
	blocks := 0
	for v.IsPlaying() {
		v.Process(buf, 110)
		blocks++
		if blocks > 20 {
			t.Fatalf("voice still playing after %d blocks", blocks)
		}
	}
	if blocks < 9 {
		t.Fatalf("voice ended too early: %d blocks", blocks)
	}
}

func TestVoiceIndexChangesTimbre(t *testing.T) {
	render := func(index float32) []float32 {
		v := newTestVoice(t, 4, 0)
		v.SetIndex(index)
		v.Trigger()
		buf := make([]float32, 2048)
		v.Process(buf, 220)
		return buf
	}
	plain, bright := render(0), render(2)
	var diff float32
	for i := range plain {
		d := plain[i] - bright[i]
		diff += d * d
	}
	if diff < 1e-3 {
		t.Fatalf("modulation index had no audible effect: diff=%g", diff)
	}
}

func TestVoiceSetAlgorithm(t *testing.T) {
	v := newTestVoice(t, 4, 0)
	before := v.Algorithm()
	err := v.SetAlgorithm(nil)
	var te *TopologyError
	if !errors.As(err, &te) {
		t.Fatalf("SetAlgorithm(nil): expected *TopologyError, got %v", err)
	}
	if v.Algorithm() != before {
		t.Fatalf("failed SetAlgorithm must keep the previous algorithm")
	}

	six, _ := Lookup(6, 0)
	if err := v.SetAlgorithm(six); err != nil {
		t.Fatalf("SetAlgorithm: %v", err)
	}
	if v.IsPlaying() {
		t.Fatalf("untriggered voice should not play")
	}
	v.Trigger()
	buf := make([]float32, 64)
	v.Process(buf, 440)
	if v.active != six {
		t.Fatalf("algorithm should be active after the next buffer")
	}
}

func TestVoiceSetOperatorClamps(t *testing.T) {
	v := newTestVoice(t, 4, 0)
	v.SetOperator(1, Operator{Level: 3, Ratio: -1, Feedback: 2, Shape: dsp.Saw})
	got := v.Operator(1)
	if got.Level != 1 || got.Ratio != 1 || got.Feedback != 1 || got.Shape != dsp.Saw {
		t.Fatalf("unexpected operator: %+v", got)
	}
	if got.Env.SampleRate != testSampleRate {
		t.Fatalf("envelope sample rate: got=%d want=%d", got.Env.SampleRate, testSampleRate)
	}
	v.SetOperator(MaxOperators, Operator{})
	if v.Envelope(MaxOperators) != nil {
		t.Fatalf("out-of-range envelope should be nil")
	}
}

func TestVoiceProcessDoesNotAllocate(t *testing.T) {
	v := newTestVoice(t, 6, 3)
	buf := make([]float32, 256)
	v.Trigger()
	allocs := testing.AllocsPerRun(100, func() {
		if !v.IsPlaying() {
			v.Trigger()
		}
		v.Process(buf, 330)
	})
	if allocs != 0 {
		t.Fatalf("Process allocated: got=%v want=0", allocs)
	}
}

func BenchmarkVoiceProcess(b *testing.B) {
	a, _ := Lookup(6, 0)
	v, _ := NewVoice(testSampleRate, a)
	buf := make([]float32, dsp.DefaultBlockSize)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if !v.IsPlaying() {
			v.Trigger()
		}
		v.Process(buf, 220)
	}
}
