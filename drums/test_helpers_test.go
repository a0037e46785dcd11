package drums

import (
	"testing"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
)

const (
	testSampleRate = 48000
	testBlock      = 256
	maxBuffers     = 10000
)

func testConfig() dsp.Config {
	return dsp.Config{SampleRate: testSampleRate, BlockSize: testBlock}
}

func newTestDrum(t *testing.T, e Engine, typ Type) Drum {
	t.Helper()
	d, err := New(e, testConfig(), DefaultSetup(typ), 7)
	if err != nil {
		t.Fatalf("New(%s, %s): %v", e, typ, err)
	}
	return d
}

// envOf returns the envelope the audio side of d runs.
func envOf(t *testing.T, d Drum) *envelope.Envelope {
	t.Helper()
	switch v := d.(type) {
	case *FMDrum:
		return v.env
	case *Pluck:
		return v.env
	case *NoiseDrum:
		return v.env
	}
	t.Fatalf("unexpected drum type %T", d)
	return nil
}

// playOut processes buffers until d stops sounding and returns the loudest
// buffer RMS and the number of buffers it took.
func playOut(t *testing.T, d Drum) (peakRMS float32, buffers int) {
	t.Helper()
	l := make([]float32, testBlock)
	r := make([]float32, testBlock)
	for d.IsSounding() {
		if buffers >= maxBuffers {
			t.Fatalf("%s still sounding after %d buffers", d.Type(), buffers)
		}
		dsp.Zero(l)
		dsp.Zero(r)
		d.Process(l, r)
		if !allFinite(l) || !allFinite(r) {
			t.Fatalf("%s produced non-finite output in buffer %d", d.Type(), buffers)
		}
		peakRMS = max(peakRMS, dsp.RMS(l), dsp.RMS(r))
		buffers++
	}
	return peakRMS, buffers
}

func maxAbs(samples []float32) float32 {
	var m float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > m {
			m = s
		}
	}
	return m
}

func allFinite(samples []float32) bool {
	for _, s := range samples {
		if !dsp.IsFinite(s) {
			return false
		}
	}
	return true
}

func filled(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}
