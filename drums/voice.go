package drums

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
	"github.com/cwbudde/algo-drums/tuning"
)

// Drum is one kit voice. Trigger, Release, Process and Reset belong to the
// audio goroutine. Set, SetFundamental, SetGain, SetFreqs, SetAttack,
// SetDecay and Silence may be called from a single control goroutine while audio runs; their effect
// lands at the start of the next Process call.
type Drum interface {
	Type() Type
	Setup() Setup
	SetFundamental(hz float32)
	Fundamental() float32
	Trigger(velocity float32)
	Release()
	IsPlaying() bool
	IsSounding() bool
	// Process adds the voice into left and right.
	Process(left, right []float32)
	Set(idx, value int) error
	Get(idx int) int
	Knobs() []string
	SetGain(g Gain) error
	SetFreqs(f Freqs) error
	// SetAttack and SetDecay take percent of the envelope's maximum stage
	// length, clamped to [0, 100].
	SetAttack(pct int)
	SetDecay(pct int)
	Envelope() envelope.Settings
	Silence()
	Reset()
}

// KnobIndex finds a knob by name, case-insensitively.
func KnobIndex(d Drum, name string) (int, error) {
	for i, n := range d.Knobs() {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s has no knob %q", d.Type(), name)
}

// engine is the sound source behind the shared voice chain.
type engine interface {
	applyKnob(i int, v float32)
	trigger()
	// render overwrites buf with raw mono output.
	render(buf []float32)
	reset()
}

const (
	// SilenceFadeMs is the fade applied by Silence before state is cleared.
	SilenceFadeMs   = 5
	gainRampSamples = 64
	maxCutRatio     = 0.45
)

// voice is the chain shared by every drum: source, filters, envelope,
// velocity, silence fade and equal-power pan.
type voice struct {
	cfg   dsp.Config
	setup Setup
	knobs []knob
	eng   engine

	ctl     Controls
	applied uint64
	freqs   *Freqs
	timing  *envelope.Settings

	env          *envelope.Envelope
	filter       *biquad.Chain
	coeffs       [3]biquad.Coefficients
	gainL, gainR *dsp.Ramp
	fade         *dsp.Ramp
	silencing    bool
	velocity     float32
	fundamental  float32
	work         []float32
}

func (v *voice) init(cfg dsp.Config, s Setup, knobs []knob, eng engine) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(knobs) > MaxKnobs {
		return fmt.Errorf("%d knobs exceed the maximum of %d", len(knobs), MaxKnobs)
	}
	cfg = withDefaults(cfg)
	v.cfg = cfg
	v.setup = s
	v.knobs = knobs
	v.eng = eng
	timing := envelope.FromMs(cfg.SampleRate, s.AttackMs, s.DecayMs)
	v.env = envelope.New(timing)
	v.filter = biquad.NewChain(v.design(s.Freqs))
	v.gainL = dsp.NewRamp(gainRampSamples)
	v.gainR = dsp.NewRamp(gainRampSamples)
	l, r := equalPower(s.Gain.Pan)
	v.gainL.Reset(l * s.Gain.Volume)
	v.gainR.Reset(r * s.Gain.Volume)
	v.fade = dsp.NewRamp(envelope.MsToSamples(SilenceFadeMs, cfg.SampleRate))
	v.fade.Reset(1)
	v.velocity = 1
	v.fundamental = s.Fundamental
	v.work = make([]float32, cfg.BlockSize)

	v.ctl.setGain(s.Gain)
	v.ctl.setFundamental(s.Fundamental)
	v.ctl.setFreqs(s.Freqs)
	v.ctl.setEnvelope(timing)
	for i, k := range knobs {
		v.ctl.setKnob(i, k.value(k.def))
	}
	return nil
}

func withDefaults(cfg dsp.Config) dsp.Config {
	if cfg.SampleRate <= 0 || cfg.BlockSize <= 0 {
		return dsp.NewConfig()
	}
	return cfg
}

func passthrough(c biquad.Coefficients) biquad.Coefficients {
	if c == (biquad.Coefficients{}) {
		return biquad.Coefficients{B0: 1}
	}
	return c
}

// design fills the filter coefficients for f. Corners at or above the usable
// band bypass their section.
func (v *voice) design(f Freqs) []biquad.Coefficients {
	sr := float64(v.cfg.SampleRate)
	limit := float32(maxCutRatio * sr)
	v.coeffs[0] = passthrough(design.Highpass(float64(minf(f.LoCut.Hz, limit)), float64(f.LoCut.Q), sr))
	v.coeffs[1] = passthrough(design.Peak(float64(minf(f.Body.Hz, limit)), float64(f.Body.DB), float64(f.Body.Q), sr))
	if f.HiCut.Hz >= limit {
		v.coeffs[2] = biquad.Coefficients{B0: 1}
	} else {
		v.coeffs[2] = passthrough(design.Lowpass(float64(f.HiCut.Hz), float64(f.HiCut.Q), sr))
	}
	return v.coeffs[:]
}

// sync applies control edits made since the last call.
func (v *voice) sync() {
	if v.ctl.takeSilence() && v.env.IsPlaying() {
		v.fade.Set(0)
		v.silencing = true
	}
	seq := v.ctl.Seq()
	if seq == v.applied {
		return
	}
	v.applied = seq
	v.fundamental = tuning.ClampHz(loadFloat(&v.ctl.fundamental))
	g := v.ctl.gain()
	l, r := equalPower(g.Pan)
	v.gainL.Set(l * g.Volume)
	v.gainR.Set(r * g.Volume)
	if f := v.ctl.freqs.Load(); f != v.freqs {
		v.freqs = f
		for i, c := range v.design(*f) {
			v.filter.Section(i).Coefficients = c
		}
	}
	if t := v.ctl.env.Load(); t != v.timing {
		v.timing = t
		v.env.SetSettings(*t)
	}
	for i := range v.knobs {
		v.eng.applyKnob(i, v.ctl.knob(i))
	}
}

func (v *voice) Type() Type { return v.setup.Type }

// Setup returns the construction setup with the current gain, fundamental
// and filters.
func (v *voice) Setup() Setup {
	s := v.setup
	s.Gain = v.ctl.gain()
	s.Fundamental = loadFloat(&v.ctl.fundamental)
	if f := v.ctl.freqs.Load(); f != nil {
		s.Freqs = *f
	}
	t := v.ctl.envelope()
	s.AttackMs, s.DecayMs = t.AttackMs(), t.DecayMs()
	return s
}

// SetFundamental retunes the voice. Out-of-range and invalid frequencies
// are clamped to the supported range.
func (v *voice) SetFundamental(hz float32) { v.ctl.setFundamental(tuning.ClampHz(hz)) }

func (v *voice) Fundamental() float32 { return loadFloat(&v.ctl.fundamental) }

// SetGain changes volume and pan with a short glide.
func (v *voice) SetGain(g Gain) error {
	s := v.setup
	s.Gain = g
	if err := s.Validate(); err != nil {
		return err
	}
	v.ctl.setGain(g)
	return nil
}

// SetFreqs replaces the filter chain corners.
func (v *voice) SetFreqs(f Freqs) error {
	if err := f.Validate(); err != nil {
		return err
	}
	v.ctl.setFreqs(f)
	return nil
}

// Set stores a 0..100 knob value.
func (v *voice) Set(idx, value int) error {
	if err := checkKnob(v.knobs, idx, value); err != nil {
		return err
	}
	v.ctl.setKnob(idx, v.knobs[idx].value(value))
	return nil
}

// Get returns the 0..100 encoding of knob idx, or -1 for an unknown knob.
func (v *voice) Get(idx int) int {
	if idx < 0 || idx >= len(v.knobs) {
		return -1
	}
	return v.knobs[idx].pct(v.ctl.knob(idx))
}

// setParam stores a knob in its natural unit, clamped to the knob's range.
func (v *voice) setParam(idx int, value float32) {
	v.ctl.setKnob(idx, v.knobs[idx].clamp(value))
}

func (v *voice) param(idx int) float32 { return v.ctl.knob(idx) }

func (v *voice) Knobs() []string { return knobNames(v.knobs) }

func (v *voice) SetAttack(pct int) { v.ctl.setEnvelope(v.ctl.envelope().WithAttackPct(pct)) }

func (v *voice) SetDecay(pct int) { v.ctl.setEnvelope(v.ctl.envelope().WithDecayPct(pct)) }

// Envelope returns the timing published by the control side.
func (v *voice) Envelope() envelope.Settings { return v.ctl.envelope() }

// Silence fades the voice out and clears its state at the next buffer.
func (v *voice) Silence() { v.ctl.requestSilence() }

// Trigger starts a hit. Velocity is clamped to 1; zero, negative and NaN
// velocities are ignored.
func (v *voice) Trigger(velocity float32) {
	if !(velocity > 0) {
		return
	}
	v.sync()
	if v.silencing {
		v.silencing = false
		v.fade.Set(1)
	}
	v.velocity = minf(velocity, 1)
	v.env.Trigger()
	v.eng.trigger()
}

func (v *voice) Release() { v.env.Release() }

func (v *voice) IsPlaying() bool { return v.env.IsPlaying() }

// IsSounding reports whether Process can still produce output.
func (v *voice) IsSounding() bool { return v.env.IsPlaying() || v.silencing }

// Reset stops the voice at once and clears every delay and filter.
func (v *voice) Reset() {
	v.env.Reset()
	v.filter.Reset()
	v.eng.reset()
	v.fade.Reset(1)
	v.silencing = false
}

func (v *voice) Process(left, right []float32) {
	v.sync()
	n := min(len(left), len(right))
	for off := 0; off < n; {
		if !v.env.IsPlaying() {
			if v.silencing {
				v.Reset()
			}
			return
		}
		m := min(n-off, len(v.work))
		buf := v.work[:m]
		v.eng.render(buf)
		l, r := left[off:off+m], right[off:off+m]
		for i, x := range buf {
			y := float32(v.filter.ProcessSample(float64(x)))
			if !dsp.IsFinite(y) {
				v.filter.Reset()
				y = 0
			}
			y *= v.env.Next() * v.velocity * v.fade.Next()
			l[i] += y * v.gainL.Next()
			r[i] += y * v.gainR.Next()
		}
		off += m
		if v.silencing && !v.fade.IsRamping() {
			v.Reset()
			return
		}
	}
}
