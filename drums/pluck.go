package drums

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
	"github.com/cwbudde/algo-drums/tuning"
)

// Pluck knob indices.
const (
	PluckBurst = iota
	PluckAmp
	PluckTap
	PluckFeedback
	PluckDamp
	PluckHarmony
	PluckCombs
	PluckColour
)

// Loop ranges of the Feedback and Damp knobs.
const (
	MinFeedback = 0.8
	MaxFeedback = dsp.MaxFeedback
	MinDamp     = 0.001
	MaxDamp     = 0.9
)

// PitchGlideMs is how long a fundamental change takes to reach the string.
const PitchGlideMs = 20

var pluckKnobs = []knob{
	{name: "Burst", lo: 1, hi: 50, def: 20},
	{name: "Amp", lo: 0, hi: 2, def: 50},
	{name: "Tap", lo: 60, hi: 8000, curve: expKnob, def: 70},
	{name: "Feedback", lo: MinFeedback, hi: MaxFeedback, def: 80},
	{name: "Damp", lo: MinDamp, hi: MaxDamp, def: 20},
	{name: "Harmony", lo: 0, hi: 1200, def: 0},
	{name: "Combs", lo: 0, hi: 1, def: 30},
	{name: "Colour", hi: 4, curve: stepKnob, def: 0},
}

// Body comb tunings relative to the setup fundamental.
var pluckBodyRatios = [2]float32{1.5, 2.31}

const bodyCombGain = 0.15

// Pluck is a plucked-string drum: a short noise burst through a tap filter
// excites a damped fractional delay loop, optionally doubled by a detuned
// second string and coloured by two body combs.
type Pluck struct {
	voice

	noise  *dsp.Noise
	tap    biquad.Section
	str    *dsp.FractionalDelay
	str2   *dsp.FractionalDelay
	combs  [2]*dsp.Comb
	pitch  *dsp.Ramp
	bodyIn []float32

	burstLen  int
	burstLeft int
	amp       float32
	feedback  float32
	damp      float32
	harmony   float32
	detune    float32
	combMix   float32
}

// NewPluck builds a plucked drum for s. seed selects the noise sequence.
func NewPluck(cfg dsp.Config, s Setup, seed uint64) (*Pluck, error) {
	cfg = withDefaults(cfg)
	sr := cfg.SampleRate
	d := &Pluck{
		noise:  dsp.NewNoise(sr, seed),
		str:    dsp.NewStringDelay(sr, tuning.MinHz),
		str2:   dsp.NewStringDelay(sr, tuning.MinHz),
		pitch:  dsp.NewRamp(envelope.MsToSamples(PitchGlideMs, sr)),
		bodyIn: make([]float32, cfg.BlockSize),
	}
	d.str.SetInterpolation(dsp.Cubic)
	d.str2.SetInterpolation(dsp.Cubic)
	for i, r := range pluckBodyRatios {
		size := int(float32(sr) / (tuning.ClampHz(s.Fundamental) * r))
		d.combs[i] = dsp.NewComb(max(size, 2))
		d.combs[i].SetFeedback(0.7)
		d.combs[i].SetDamp(0.3)
	}
	if err := d.init(cfg, s, pluckKnobs, d); err != nil {
		return nil, err
	}
	d.sync()
	d.snapPitch()
	return d, nil
}

// SetFeedback sets the loop gain directly, clamped to [MinFeedback,
// MaxFeedback].
func (d *Pluck) SetFeedback(fb float32) { d.setParam(PluckFeedback, fb) }

// Feedback returns the loop gain.
func (d *Pluck) Feedback() float32 { return d.param(PluckFeedback) }

// SetDamp sets the loop damping directly, clamped to [MinDamp, MaxDamp].
func (d *Pluck) SetDamp(damp float32) { d.setParam(PluckDamp, damp) }

// Damp returns the loop damping.
func (d *Pluck) Damp() float32 { return d.param(PluckDamp) }

// LoopFrequency returns the pitch the main string currently rings at.
func (d *Pluck) LoopFrequency() float32 { return d.str.Frequency(d.cfg.SampleRate) }

func (d *Pluck) applyKnob(i int, v float32) {
	sr := d.cfg.SampleRate
	switch i {
	case PluckBurst:
		d.burstLen = max(envelope.MsToSamples(int(v+0.5), sr), 1)
	case PluckAmp:
		d.amp = v
	case PluckTap:
		limit := float32(maxCutRatio) * float32(sr)
		d.tap.Coefficients = passthrough(design.Lowpass(float64(minf(v, limit)), 0.707, float64(sr)))
	case PluckFeedback:
		d.feedback = v
	case PluckDamp:
		d.damp = v
	case PluckHarmony:
		d.harmony = v
		d.detune = centsToRatio(v)
		d.tune(d.pitch.Get())
	case PluckCombs:
		d.combMix = v
	case PluckColour:
		d.noise.SetColour(dsp.Colour(int(v)))
	}
}

func (d *Pluck) tune(hz float32) {
	sr := d.cfg.SampleRate
	d.str.SetFrequency(hz, sr)
	if d.harmony > 0 {
		d.str2.SetFrequency(tuning.ClampHz(hz*d.detune), sr)
	}
}

func (d *Pluck) trigger() {
	if !d.ringing() {
		d.snapPitch()
	}
	d.tap.Reset()
	d.burstLeft = d.burstLen
}

// ringing reports whether the previous hit is still audible. The envelope
// has already restarted from its last level when trigger runs.
func (d *Pluck) ringing() bool {
	return d.burstLeft > 0 || d.env.Level() > 0
}

func (d *Pluck) render(buf []float32) {
	if d.pitch.Target() != d.fundamental {
		d.pitch.Set(d.fundamental)
	}

	burst := min(d.burstLeft, len(buf))
	if burst > 0 {
		d.noise.Fill(buf, 0, burst)
		done := d.burstLen - d.burstLeft
		for i := 0; i < burst; i++ {
			w := 1 - float32(done+i)/float32(d.burstLen)
			buf[i] = float32(d.tap.ProcessSample(float64(buf[i]))) * d.amp * w
		}
		d.burstLeft -= burst
	}
	dsp.Zero(buf[burst:])

	for i, x := range buf {
		if d.pitch.IsRamping() {
			d.tune(d.pitch.Next())
		}
		y := d.str.Process(x, d.feedback, d.damp)
		if d.harmony > 0 {
			y = 0.5 * (y + d.str2.Process(x, d.feedback, d.damp))
		}
		buf[i] = y
	}

	if d.combMix > 0 {
		in := d.bodyIn[:len(buf)]
		g := d.combMix * bodyCombGain
		for i, y := range buf {
			in[i] = y * g
		}
		for _, c := range d.combs {
			c.ProcessMix(in, buf)
		}
	}
}

func (d *Pluck) reset() {
	d.noise.Reset()
	d.tap.Reset()
	d.str.Reset()
	d.str2.Reset()
	for _, c := range d.combs {
		c.Reset()
	}
	d.burstLeft = 0
	d.snapPitch()
}

// snapPitch jumps both strings to the fundamental without a glide and clears
// them.
func (d *Pluck) snapPitch() {
	d.pitch.Reset(d.fundamental)
	d.tune(d.fundamental)
	d.str.Reset()
	d.str2.Reset()
}
