package drums

import (
	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/tuning"
)

// NoiseDrum knob indices.
const (
	NoiseColour = iota
	NoiseTone
	NoiseRing
	NoiseSnap
)

var noiseKnobs = []knob{
	{name: "Colour", hi: 4, curve: stepKnob, def: 0},
	{name: "Tone", lo: 0, hi: 1, def: 30},
	{name: "Ring", lo: 0, hi: 0.95, def: 0},
	{name: "Snap", lo: 0, hi: 24, def: 25},
}

// snapMs is the time constant of the tone's pitch drop.
const snapMs = 15

// NoiseDrum blends coloured noise with a sine tone whose pitch snaps down
// from above the fundamental. Two combs tuned to the fundamental add ring
// for snares, claps and hats.
type NoiseDrum struct {
	voice

	noise *dsp.Noise
	tone  dsp.Oscillator
	combs [2]*dsp.Comb
	ring  []float32

	toneMix   float32
	ringMix   float32
	snapOct   float32
	snapCoef  float32
	snapLevel float32
}

// NewNoiseDrum builds a noise drum for s. seed selects the noise sequence.
func NewNoiseDrum(cfg dsp.Config, s Setup, seed uint64) (*NoiseDrum, error) {
	cfg = withDefaults(cfg)
	sr := cfg.SampleRate
	d := &NoiseDrum{
		noise:    dsp.NewNoise(sr, seed),
		tone:     *dsp.NewOscillator(dsp.Sine),
		ring:     make([]float32, cfg.BlockSize),
		snapCoef: decayCoef(snapMs, sr),
	}
	f0 := tuning.ClampHz(s.Fundamental)
	for i, r := range [2]float32{1, 1.414} {
		d.combs[i] = dsp.NewComb(max(int(float32(sr)/(f0*r)), 2))
		d.combs[i].SetDamp(0.2)
	}
	if err := d.init(cfg, s, noiseKnobs, d); err != nil {
		return nil, err
	}
	d.env.Attach(&d.tone)
	d.sync()
	return d, nil
}

func (d *NoiseDrum) applyKnob(i int, v float32) {
	switch i {
	case NoiseColour:
		d.noise.SetColour(dsp.Colour(int(v)))
	case NoiseTone:
		d.toneMix = v
	case NoiseRing:
		d.ringMix = v
		for _, c := range d.combs {
			c.SetFeedback(v)
		}
	case NoiseSnap:
		d.snapOct = v / 12
	}
}

func (d *NoiseDrum) trigger() { d.snapLevel = 1 }

func (d *NoiseDrum) render(buf []float32) {
	d.noise.Fill(buf, 0, len(buf))
	sr := d.cfg.SampleRate
	noiseMix := 1 - d.toneMix
	for i, x := range buf {
		hz := d.fundamental
		if d.snapLevel > 1e-4 {
			hz *= pow2Approx(d.snapOct * d.snapLevel)
			d.snapLevel *= d.snapCoef
		}
		buf[i] = x*noiseMix + d.tone.Next(dsp.Increment(tuning.ClampHz(hz), sr), 0)*d.toneMix
	}

	if d.ringMix > 0 {
		in := d.ring[:len(buf)]
		g := 0.5 * (1 - 0.9*d.ringMix)
		for i, x := range buf {
			in[i] = x * g
		}
		for _, c := range d.combs {
			c.ProcessMix(in, buf)
		}
	}
}

func (d *NoiseDrum) reset() {
	d.noise.Reset()
	d.tone.Reset()
	for _, c := range d.combs {
		c.Reset()
	}
	d.snapLevel = 0
}
