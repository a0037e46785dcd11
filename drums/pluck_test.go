package drums

import (
	"testing"

	"github.com/cwbudde/algo-drums/dsp"
)

func newTestPluck(t *testing.T) *Pluck {
	t.Helper()
	d, err := NewPluck(testConfig(), DefaultSetup(Stick), 3)
	if err != nil {
		t.Fatalf("NewPluck: %v", err)
	}
	return d
}

func TestPluckFeedbackKnobReachesMax(t *testing.T) {
	d := newTestPluck(t)
	if err := d.Set(PluckFeedback, 100); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := d.Feedback(); got != MaxFeedback {
		t.Fatalf("Feedback()=%v want=%v", got, float32(MaxFeedback))
	}
	if got := d.Get(PluckFeedback); got != 100 {
		t.Fatalf("Get=%d want=100", got)
	}
	if err := d.Set(PluckFeedback, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := d.Feedback(); got != MinFeedback {
		t.Fatalf("Feedback()=%v want=%v", got, float32(MinFeedback))
	}
}

func TestPluckKnobsRoundTripExactly(t *testing.T) {
	d := newTestPluck(t)
	values := []int{0, 5, 19, 35, 56, 59, 60, 75, 85, 95, 99, 100}
	for _, idx := range []int{PluckDamp, PluckHarmony} {
		for _, v := range values {
			if err := d.Set(idx, v); err != nil {
				t.Fatalf("Set(%d, %d): %v", idx, v, err)
			}
			if got := d.Get(idx); got != v {
				t.Fatalf("knob %d: Set(%d) then Get=%d", idx, v, got)
			}
		}
	}
}

func TestPluckDirectSettersClamp(t *testing.T) {
	d := newTestPluck(t)
	d.SetFeedback(2)
	if got := d.Feedback(); got != MaxFeedback {
		t.Fatalf("Feedback()=%v want=%v", got, float32(MaxFeedback))
	}
	d.SetDamp(-1)
	if got := d.Damp(); got != MinDamp {
		t.Fatalf("Damp()=%v want=%v", got, float32(MinDamp))
	}
	d.SetDamp(0.5)
	if got := d.Damp(); got != 0.5 {
		t.Fatalf("Damp()=%v want=0.5", got)
	}
}

func TestPluckPitchGlides(t *testing.T) {
	d := newTestPluck(t)
	d.SetFundamental(200)
	d.Trigger(1)
	l := make([]float32, testBlock)
	r := make([]float32, testBlock)
	d.Process(l, r)
	if f := d.LoopFrequency(); f < 199 || f > 201 {
		t.Fatalf("LoopFrequency()=%g want≈200 before the change", f)
	}

	d.SetFundamental(400)
	d.Process(l[:128], r[:128])
	f := d.LoopFrequency()
	if f <= 201 || f >= 399 {
		t.Fatalf("LoopFrequency()=%g want strictly between 200 and 400 mid-glide", f)
	}

	for i := 0; i < 5; i++ {
		d.Process(l, r)
	}
	if f := d.LoopFrequency(); f < 399 || f > 401 {
		t.Fatalf("LoopFrequency()=%g want≈400 after the glide", f)
	}
}

func TestPluckFreshTriggerSnapsPitch(t *testing.T) {
	d := newTestPluck(t)
	d.SetFundamental(300)
	d.Trigger(1)
	if f := d.LoopFrequency(); f < 299 || f > 301 {
		t.Fatalf("LoopFrequency()=%g want≈300 right after trigger", f)
	}
}

func TestPluckHighFeedbackStaysBounded(t *testing.T) {
	d := newTestPluck(t)
	d.SetFeedback(MaxFeedback)
	d.SetDamp(MinDamp)
	for _, idx := range []int{PluckAmp, PluckCombs, PluckHarmony} {
		if err := d.Set(idx, 100); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	d.Trigger(1)
	l := make([]float32, testBlock)
	r := make([]float32, testBlock)
	for i := 0; i < 200; i++ {
		dsp.Zero(l)
		dsp.Zero(r)
		d.Process(l, r)
		if !allFinite(l) || maxAbs(l) > 20 {
			t.Fatalf("buffer %d: peak=%g", i, maxAbs(l))
		}
	}
}

func TestPluckColourKnob(t *testing.T) {
	d := newTestPluck(t)
	if err := d.Set(PluckColour, 100); err != nil {
		t.Fatalf("Set: %v", err)
	}
	d.Trigger(1)
	if got := d.noise.Colour(); got != dsp.Violet {
		t.Fatalf("colour=%v want=%v", got, dsp.Violet)
	}
}
