package fm

import (
	"sync/atomic"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
	"github.com/cwbudde/algo-drums/tuning"
)

// MaxIndex bounds the modulation index, in cycles of phase offset per unit of
// modulator output.
const MaxIndex = 4

// Operator is the per-operator patch of a Voice.
type Operator struct {
	// Level scales the operator output, 0..1.
	Level float32
	// Ratio multiplies the voice frequency.
	Ratio float32
	// Feedback is the depth of self-modulation and of loop edges closing on
	// this operator, 0..1.
	Feedback float32
	Shape    dsp.Shape
	Env      envelope.Settings
}

// DefaultOperator returns a full-level sine at ratio 1 with the default
// percussive envelope.
func DefaultOperator(sampleRate int) Operator {
	return Operator{
		Level: 1,
		Ratio: 1,
		Shape: dsp.Sine,
		Env:   envelope.Default(sampleRate),
	}
}

// Voice renders one FM note through an Algorithm. All methods except
// SetAlgorithm belong to the audio goroutine.
type Voice struct {
	sampleRate int

	algo   atomic.Pointer[Algorithm]
	active *Algorithm

	ops   [MaxOperators]Operator
	osc   [MaxOperators]dsp.Oscillator
	env   [MaxOperators]*envelope.Envelope
	cur   [MaxOperators]float32
	prev  [MaxOperators]float32
	prev2 [MaxOperators]float32
	index float32
}

// NewVoice returns a voice playing a. a must be valid; see SetAlgorithm.
func NewVoice(sampleRate int, a *Algorithm) (*Voice, error) {
	if sampleRate <= 0 {
		sampleRate = dsp.DefaultSampleRate
	}
	v := &Voice{sampleRate: sampleRate, index: 1}
	for i := range v.ops {
		v.ops[i] = DefaultOperator(sampleRate)
		v.osc[i].SetShape(dsp.Sine)
		v.env[i] = envelope.New(v.ops[i].Env)
		v.env[i].Attach(&v.osc[i])
	}
	if err := v.SetAlgorithm(a); err != nil {
		return nil, err
	}
	v.Prepare()
	return v, nil
}

// SetAlgorithm installs a for the next buffer. Invalid algorithms are
// rejected and the current one stays in place. Safe from any goroutine.
func (v *Voice) SetAlgorithm(a *Algorithm) error {
	if a == nil {
		return &TopologyError{Problems: []string{"algorithm is nil"}}
	}
	if problems := Validate(a, a.OpCount()); len(problems) > 0 {
		return &TopologyError{Problems: problems}
	}
	v.algo.Store(a)
	return nil
}

// Algorithm returns the most recently installed algorithm.
func (v *Voice) Algorithm() *Algorithm { return v.algo.Load() }

// SetOperator replaces the patch of operator i. Out-of-range values are
// clamped; an invalid ratio becomes 1.
func (v *Voice) SetOperator(i int, op Operator) {
	if i < 0 || i >= MaxOperators {
		return
	}
	op.Level = dsp.Clamp(op.Level, 0, 1)
	op.Feedback = dsp.Clamp(op.Feedback, 0, 1)
	if !(op.Ratio > 0) || !dsp.IsFinite(op.Ratio) {
		op.Ratio = 1
	}
	if op.Env.SampleRate <= 0 {
		op.Env.SampleRate = v.sampleRate
	}
	v.ops[i] = op
	v.osc[i].SetShape(op.Shape)
	v.env[i].SetSettings(op.Env)
}

// Operator returns the patch of operator i.
func (v *Voice) Operator(i int) Operator {
	if i < 0 || i >= MaxOperators {
		return Operator{}
	}
	return v.ops[i]
}

// Envelope returns the envelope of operator i.
func (v *Voice) Envelope(i int) *envelope.Envelope {
	if i < 0 || i >= MaxOperators {
		return nil
	}
	return v.env[i]
}

// SetIndex sets the modulation index, clamped to [0, MaxIndex].
func (v *Voice) SetIndex(index float32) { v.index = dsp.Clamp(index, 0, MaxIndex) }

// Index returns the modulation index.
func (v *Voice) Index() float32 { return v.index }

// Trigger starts every operator envelope.
func (v *Voice) Trigger() {
	for _, e := range v.env {
		e.Trigger()
	}
}

// Release moves every operator envelope to its release stage.
func (v *Voice) Release() {
	for _, e := range v.env {
		e.Release()
	}
}

// Reset stops the voice and clears oscillator and feedback history.
func (v *Voice) Reset() {
	for i := range v.env {
		v.env[i].Reset()
		v.osc[i].Reset()
	}
	v.cur = [MaxOperators]float32{}
	v.prev = [MaxOperators]float32{}
	v.prev2 = [MaxOperators]float32{}
}

// IsPlaying reports whether any carrier envelope is still running.
func (v *Voice) IsPlaying() bool {
	a := v.active
	if a == nil {
		return false
	}
	for op := 0; op < a.n; op++ {
		if a.carrier[op] && v.env[op].IsPlaying() {
			return true
		}
	}
	return false
}

// Prepare picks up an algorithm installed since the last buffer. Process
// calls it; callers driving Next directly call it once per buffer.
func (v *Voice) Prepare() {
	v.active = v.algo.Load()
}

// Next renders one sample at hz.
func (v *Voice) Next(hz float32) float32 {
	a := v.active
	if a == nil {
		return 0
	}
	var out float32
	for i := 0; i < a.n; i++ {
		op := int(a.order[i])
		o := &v.ops[op]
		var pm float32
		for e := 0; e < int(a.nEdges[op]); e++ {
			ed := a.edges[op][e]
			m := int(ed.from)
			switch {
			case m == op:
				pm += (v.prev[op] + v.prev2[op]) * 0.5 * o.Feedback * ed.scale
			case ed.feedback:
				pm += v.prev[m] * o.Feedback * ed.scale
			default:
				pm += v.cur[m] * ed.scale * v.index
			}
		}
		s := v.osc[op].Next(dsp.Increment(hz*o.Ratio, v.sampleRate), pm)
		s *= v.env[op].Next() * o.Level
		if !dsp.IsFinite(s) {
			s = 0
		}
		s = dsp.FlushDenormals(s)
		v.cur[op] = s
		if a.carrier[op] {
			out += s
		}
	}
	for op := 0; op < a.n; op++ {
		v.prev2[op] = v.prev[op]
		v.prev[op] = v.cur[op]
	}
	return out * a.carrierGain
}

// Process overwrites out with the voice at hz and returns the number of
// frames rendered while a carrier was sounding. The rest is zeroed.
func (v *Voice) Process(out []float32, hz float32) int {
	v.Prepare()
	hz = tuning.ClampHz(hz)
	n := 0
	for i := range out {
		if !v.IsPlaying() {
			dsp.Zero(out[i:])
			break
		}
		out[i] = v.Next(hz)
		n++
	}
	return n
}
