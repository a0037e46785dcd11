package drums

import (
	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
	"github.com/cwbudde/algo-drums/fm"
	"github.com/cwbudde/algo-drums/tuning"
)

// FMDrum knob indices.
const (
	FMAlgorithm = iota
	FMRatio
	FMFeedback
	FMIndex
	FMSweep
	FMDepth
)

// fmOperators is the operator count of the FM drum's algorithm table.
const fmOperators = 4

var fmKnobs = []knob{
	{name: "Algorithm", hi: 7, curve: stepKnob, def: 0},
	{name: "Ratio", hi: 40, curve: stepKnob, def: 8},
	{name: "Feedback", lo: 0, hi: 1, def: 0},
	{name: "Index", lo: 0, hi: fm.MaxIndex, def: 25},
	{name: "Sweep", lo: 5, hi: 500, curve: expKnob, def: 40},
	{name: "Depth", lo: 0, hi: 48, def: 25},
}

// FMDrum is a four-operator FM voice with an exponential pitch drop on
// every hit. Modulators share the Ratio knob; carriers stay at ratio 1.
type FMDrum struct {
	voice
	op *fm.Voice

	algo     int
	ratio    int
	feedback float32

	sweepCoef  float32
	sweepLevel float32
	depthOct   float32
}

// NewFMDrum builds an FM drum for s.
func NewFMDrum(cfg dsp.Config, s Setup) (*FMDrum, error) {
	cfg = withDefaults(cfg)
	a, err := fm.Lookup(fmOperators, 0)
	if err != nil {
		return nil, err
	}
	op, err := fm.NewVoice(cfg.SampleRate, a)
	if err != nil {
		return nil, err
	}
	d := &FMDrum{op: op, algo: -1}
	if err := d.init(cfg, s, fmKnobs, d); err != nil {
		return nil, err
	}
	d.sync()
	return d, nil
}

// Operator returns the underlying FM voice.
func (d *FMDrum) Operator() *fm.Voice { return d.op }

func (d *FMDrum) applyKnob(i int, v float32) {
	switch i {
	case FMAlgorithm:
		idx := int(v)
		if idx == d.algo {
			return
		}
		a, err := fm.Lookup(fmOperators, idx)
		if err != nil {
			return
		}
		if d.op.SetAlgorithm(a) == nil {
			d.algo = idx
			d.op.Prepare()
			d.retune()
		}
	case FMRatio:
		d.ratio = int(v)
		d.retune()
	case FMFeedback:
		d.feedback = v
		d.retune()
	case FMIndex:
		d.op.SetIndex(v)
	case FMSweep:
		d.sweepCoef = decayCoef(v, d.cfg.SampleRate)
	case FMDepth:
		d.depthOct = v / 12
	}
}

// retune pushes ratio, feedback and envelope shape into every operator.
// Modulators decay twice as fast as carriers.
func (d *FMDrum) retune() {
	a := d.op.Algorithm()
	if a == nil {
		return
	}
	carrierEnv := envelope.FromMs(d.cfg.SampleRate, d.setup.AttackMs, d.setup.DecayMs)
	modEnv := envelope.FromMs(d.cfg.SampleRate, d.setup.AttackMs, d.setup.DecayMs/2)
	for i := 0; i < a.OpCount(); i++ {
		o := d.op.Operator(i)
		if a.IsCarrier(i) {
			o.Ratio = 1
			o.Env = carrierEnv
		} else {
			o.Ratio = fm.RatioAt(d.ratio)
			o.Env = modEnv
		}
		o.Feedback = 0
		if a.Feedback(i) {
			o.Feedback = d.feedback
		}
		d.op.SetOperator(i, o)
	}
}

func (d *FMDrum) trigger() {
	d.sweepLevel = 1
	d.op.Trigger()
}

func (d *FMDrum) render(buf []float32) {
	d.op.Prepare()
	f0 := d.fundamental
	for i := range buf {
		hz := f0
		if d.sweepLevel > 1e-4 {
			hz *= pow2Approx(d.depthOct * d.sweepLevel)
			d.sweepLevel *= d.sweepCoef
		}
		buf[i] = d.op.Next(tuning.ClampHz(hz))
	}
}

func (d *FMDrum) reset() {
	d.op.Reset()
	d.sweepLevel = 0
}
