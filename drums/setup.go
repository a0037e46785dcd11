package drums

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-drums/envelope"
	"github.com/cwbudde/algo-drums/tuning"
)

// Type names the role a drum plays in a kit.
type Type int

const (
	Kick Type = iota
	Snare
	Stick
	Clap
	ClosedHat
	OpenHat
	Ride
	Bongo
	NumTypes
)

var typeNames = [NumTypes]string{"kick", "snare", "stick", "clap", "chat", "ohat", "ride", "bongo"}

func (t Type) String() string {
	if t < 0 || t >= NumTypes {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a type by name, case-insensitively.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return Kick, fmt.Errorf("unknown drum type %q", name)
}

// MaxVolume bounds Gain.Volume.
const MaxVolume = 4

// Gain is the output level and stereo position of a drum. Pan runs from 0
// (left) to 1 (right).
type Gain struct {
	Volume float32
	Pan    float32
}

// Cut is a low- or high-cut filter corner.
type Cut struct {
	Hz float32
	Q  float32
}

// Body is a peaking filter shaping the drum's resonance.
type Body struct {
	Hz float32
	Q  float32
	DB float32
}

// Freqs is the voice filter chain: lo-cut, body peak, hi-cut.
type Freqs struct {
	LoCut Cut
	Body  Body
	HiCut Cut
}

// Setup is the static description of one drum voice.
type Setup struct {
	Type        Type
	Gain        Gain
	AttackMs    int
	DecayMs     int
	Freqs       Freqs
	Fundamental float32
}

const (
	cutQ  = 0.707
	bodyQ = 1
)

func setup(t Type, vol float32, atk, dk int, lo, body, bodyDB, hi, f0 float32) Setup {
	return Setup{
		Type:     t,
		Gain:     Gain{Volume: vol, Pan: 0.5},
		AttackMs: atk,
		DecayMs:  dk,
		Freqs: Freqs{
			LoCut: Cut{Hz: lo, Q: cutQ},
			Body:  Body{Hz: body, Q: bodyQ, DB: bodyDB},
			HiCut: Cut{Hz: hi, Q: cutQ},
		},
		Fundamental: f0,
	}
}

var defaultSetups = [NumTypes]Setup{
	setup(Kick, 0.9, 5, 300, 30, 60, 3, 8000, 55),
	setup(Snare, 0.7, 2, 200, 120, 220, 3, 12000, 180),
	setup(Stick, 0.6, 1, 60, 400, 1200, 6, 14000, 391),
	setup(Clap, 0.6, 8, 250, 600, 1500, 3, 12000, 1100),
	setup(ClosedHat, 0.5, 1, 80, 4000, 8000, 3, 16000, 3278),
	setup(OpenHat, 0.5, 2, 450, 3500, 7000, 3, 16000, 4500),
	setup(Ride, 0.4, 5, 900, 2000, 5000, 3, 15000, 3000),
	setup(Bongo, 0.6, 1, 180, 150, 300, 3, 8000, 297),
}

// DefaultSetup returns the built-in setup for t.
func DefaultSetup(t Type) Setup {
	if t < 0 || t >= NumTypes {
		t = Kick
	}
	return defaultSetups[t]
}

// Validate reports the first out-of-range field.
func (s Setup) Validate() error {
	switch {
	case s.Type < 0 || s.Type >= NumTypes:
		return fmt.Errorf("drum type %d out of range", int(s.Type))
	case !(s.Gain.Volume >= 0 && s.Gain.Volume <= MaxVolume):
		return fmt.Errorf("volume %g out of range [0, %d]", s.Gain.Volume, MaxVolume)
	case !(s.Gain.Pan >= 0 && s.Gain.Pan <= 1):
		return fmt.Errorf("pan %g out of range [0, 1]", s.Gain.Pan)
	case s.AttackMs < 0 || s.AttackMs > envelope.MaxAttackMs:
		return fmt.Errorf("attack %d ms out of range [0, %d]", s.AttackMs, envelope.MaxAttackMs)
	case s.DecayMs < 0 || s.DecayMs > envelope.MaxDecayMs:
		return fmt.Errorf("decay %d ms out of range [0, %d]", s.DecayMs, envelope.MaxDecayMs)
	case !(s.Fundamental >= tuning.MinHz && s.Fundamental <= tuning.MaxHz):
		return fmt.Errorf("fundamental %g Hz out of range [%g, %g]", s.Fundamental, tuning.MinHz, tuning.MaxHz)
	}
	return s.Freqs.Validate()
}

// Validate checks corner frequencies and quality factors.
func (f Freqs) Validate() error {
	for _, c := range []struct {
		name  string
		hz, q float32
	}{
		{"lo-cut", f.LoCut.Hz, f.LoCut.Q},
		{"body", f.Body.Hz, f.Body.Q},
		{"hi-cut", f.HiCut.Hz, f.HiCut.Q},
	} {
		if !(c.hz > 0) || c.hz > tuning.MaxHz*2 {
			return fmt.Errorf("%s frequency %g Hz out of range", c.name, c.hz)
		}
		if !(c.q > 0) || c.q > 30 {
			return fmt.Errorf("%s Q %g out of range (0, 30]", c.name, c.q)
		}
	}
	if !(f.Body.DB >= -24 && f.Body.DB <= 24) {
		return fmt.Errorf("body gain %g dB out of range [-24, 24]", f.Body.DB)
	}
	return nil
}
