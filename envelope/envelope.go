package envelope

import (
	"fmt"
	"math"
)

// Stage is the state of an Envelope.
type Stage int

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

var stageNames = [...]string{"idle", "attack", "decay", "sustain", "release"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Retriggerable is told when the envelope it is attached to retriggers, so it
// can crossfade its own state over the same window.
type Retriggerable interface {
	Retrigger(blendSamples int)
}

// Envelope is an attack/decay/sustain/release amplitude generator. It is
// owned by one audio goroutine; control changes reach it through the voice
// that owns it.
type Envelope struct {
	settings Settings
	curve    Curve

	stage Stage
	pos   int
	level float32
	out   float32
	from  float32

	blendLeft int
	blendLen  int
	blendFrom float32

	attached []Retriggerable
}

// New returns an idle envelope.
func New(s Settings) *Envelope {
	s.SampleRate = normRate(s.SampleRate)
	return &Envelope{settings: s, curve: Linear}
}

// Settings returns the current timing.
func (e *Envelope) Settings() Settings { return e.settings }

// SetSettings replaces the timing. A running stage continues with the new
// lengths from its current position.
func (e *Envelope) SetSettings(s Settings) {
	s.SampleRate = normRate(s.SampleRate)
	e.settings = s
}

func (e *Envelope) SetAttackPct(pct int) { e.settings = e.settings.WithAttackPct(pct) }
func (e *Envelope) SetDecayPct(pct int)  { e.settings = e.settings.WithDecayPct(pct) }

func (e *Envelope) SetSustainPct(pct int) {
	e.settings.Sustain = float32(clampPct(pct)) / 100
}

func (e *Envelope) SetReleasePct(pct int) {
	e.settings.ReleaseSamples = PercentToSamples(pct, MaxDecayMs, e.settings.SampleRate)
}

func (e *Envelope) SetAttackMs(ms int) {
	e.settings.AttackSamples = MsToSamples(min(max(ms, 0), MaxAttackMs), e.settings.SampleRate)
}

func (e *Envelope) SetDecayMs(ms int) {
	e.settings.DecaySamples = MsToSamples(min(max(ms, 0), MaxDecayMs), e.settings.SampleRate)
}

func (e *Envelope) AttackSamples() int { return e.settings.AttackSamples }
func (e *Envelope) DecaySamples() int  { return e.settings.DecaySamples }

// SetCurve selects the stage shape.
func (e *Envelope) SetCurve(c Curve) { e.curve = c }

// Curve returns the stage shape.
func (e *Envelope) Curve() Curve { return e.curve }

// Attach registers r to be retriggered with this envelope. Not safe while
// the envelope is processing.
func (e *Envelope) Attach(r Retriggerable) {
	if r != nil {
		e.attached = append(e.attached, r)
	}
}

func (e *Envelope) Stage() Stage { return e.stage }

// Level returns the last output value.
func (e *Envelope) Level() float32 { return e.out }

// IsPlaying reports whether the envelope is in any stage but Idle.
func (e *Envelope) IsPlaying() bool { return e.stage != Idle }

// Trigger restarts the attack with the default crossfade.
func (e *Envelope) Trigger() { e.TriggerBlend(DefaultBlendMs) }

// TriggerBlend restarts the attack from the current level. When the envelope
// is sounding, the output crossfades from the pre-trigger level over blendMs.
func (e *Envelope) TriggerBlend(blendMs float32) {
	blend := 0
	if blendMs > 0 && !math.IsInf(float64(blendMs), 0) {
		blend = int(math.Round(float64(blendMs) * float64(e.settings.SampleRate) / 1000))
	}
	if e.stage == Idle {
		e.out = 0
	}
	e.from = e.out
	e.blendLeft = 0
	if e.from <= 0 {
		blend = 0
	}
	if blend > 0 {
		e.blendFrom = e.from
		e.blendLen = blend
		e.blendLeft = blend
	}
	for _, r := range e.attached {
		r.Retrigger(blend)
	}
	e.level = e.from
	e.pos = 0
	e.stage = Attack
	e.settle()
}

// Release moves a sounding envelope to its release stage. With no release
// time the envelope stops at once.
func (e *Envelope) Release() {
	if e.stage == Idle || e.stage == Release {
		return
	}
	e.from = e.out
	e.level = e.out
	e.blendLeft = 0
	e.pos = 0
	e.stage = Release
	e.settle()
}

// Reset stops the envelope without a fade.
func (e *Envelope) Reset() {
	e.stage = Idle
	e.pos = 0
	e.level = 0
	e.out = 0
	e.blendLeft = 0
}

// settle skips zero-length stages.
func (e *Envelope) settle() {
	if e.stage == Attack && e.settings.AttackSamples <= 0 {
		e.level = 1
		e.stage, e.pos = Decay, 0
	}
	if e.stage == Decay && e.settings.DecaySamples <= 0 {
		e.level = e.settings.Sustain
		e.stage, e.pos = Sustain, 0
	}
	if e.stage == Sustain && e.settings.Sustain <= 0 {
		e.stage, e.level = Idle, 0
	}
	if e.stage == Release && (e.settings.ReleaseSamples <= 0 || e.from <= 0) {
		e.stage, e.level = Idle, 0
	}
	if e.stage == Idle {
		e.blendLeft = 0
	}
}

// Next returns one envelope sample.
func (e *Envelope) Next() float32 {
	if e.stage == Idle {
		e.out = 0
		return 0
	}

	switch e.stage {
	case Attack:
		n := e.settings.AttackSamples
		e.pos++
		p := float64(e.pos) / float64(n)
		from := float64(e.from)
		e.level = float32(from + (1-from)*(1-e.curve.apply(p)))
		if e.pos >= n {
			e.level = 1
			e.stage, e.pos = Decay, 0
			e.settle()
		}
	case Decay:
		n := e.settings.DecaySamples
		s := float64(e.settings.Sustain)
		e.pos++
		p := float64(e.pos) / float64(n)
		e.level = float32(s + (1-s)*e.curve.apply(p))
		if e.pos >= n {
			e.level = e.settings.Sustain
			e.stage, e.pos = Sustain, 0
			e.settle()
		}
	case Sustain:
		e.level = e.settings.Sustain
	case Release:
		n := e.settings.ReleaseSamples
		e.pos++
		p := float64(e.pos) / float64(n)
		e.level = float32(float64(e.from) * e.curve.apply(p))
		if e.pos >= n {
			e.stage, e.level = Idle, 0
			e.blendLeft = 0
		}
	}

	out := e.level
	if e.blendLeft > 0 {
		w := float32(e.blendLeft) / float32(e.blendLen+1)
		e.blendLeft--
		out = e.blendFrom*w + out*(1-w)
	}
	e.out = out
	return out
}

// Process multiplies buf by the envelope and returns the number of frames
// produced while the envelope was sounding. Frames after the envelope ends
// are zeroed.
func (e *Envelope) Process(buf []float32) int {
	n := 0
	for i := range buf {
		if e.stage == Idle {
			buf[i] = 0
			continue
		}
		buf[i] *= e.Next()
		n++
	}
	if e.stage == Idle {
		e.out = 0
	}
	return n
}
