package drums

import (
	"fmt"

	"github.com/cwbudde/algo-drums/dsp"
)

// Engine selects the sound source of a drum.
type Engine int

const (
	EngineFM Engine = iota
	EnginePluck
	EngineNoise
	numEngines
)

var engineNames = [numEngines]string{"fm", "pluck", "noise"}

func (e Engine) String() string {
	if e < 0 || e >= numEngines {
		return fmt.Sprintf("engine(%d)", int(e))
	}
	return engineNames[e]
}

// ParseEngine resolves an engine by name.
func ParseEngine(name string) (Engine, error) {
	for i, n := range engineNames {
		if n == name {
			return Engine(i), nil
		}
	}
	return EngineFM, fmt.Errorf("unknown engine %q", name)
}

// defaultEngines pairs each drum type with the source that suits it best.
var defaultEngines = [NumTypes]Engine{
	Kick:      EngineFM,
	Snare:     EngineNoise,
	Stick:     EnginePluck,
	Clap:      EngineNoise,
	ClosedHat: EngineNoise,
	OpenHat:   EngineNoise,
	Ride:      EngineFM,
	Bongo:     EnginePluck,
}

// DefaultEngine returns the usual engine for t.
func DefaultEngine(t Type) Engine {
	if t < 0 || t >= NumTypes {
		return EngineFM
	}
	return defaultEngines[t]
}

// New builds a drum of engine e for s. seed feeds the noise sources and is
// ignored by the FM engine.
func New(e Engine, cfg dsp.Config, s Setup, seed uint64) (Drum, error) {
	switch e {
	case EngineFM:
		return NewFMDrum(cfg, s)
	case EnginePluck:
		return NewPluck(cfg, s, seed)
	case EngineNoise:
		return NewNoiseDrum(cfg, s, seed)
	}
	return nil, fmt.Errorf("unknown engine %d", int(e))
}

// NewDefaultKit fills every slot with the default setup and engine of the
// matching drum type, slot i holding Type(i).
func NewDefaultKit(cfg dsp.Config, seed uint64) (*Kit, error) {
	k := NewKit(cfg)
	for i := 0; i < Slots && i < int(NumTypes); i++ {
		t := Type(i)
		d, err := New(DefaultEngine(t), k.Config(), DefaultSetup(t), seed+uint64(i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		if err := k.SetDrum(i, d); err != nil {
			return nil, err
		}
	}
	return k, nil
}
