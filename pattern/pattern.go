// Package pattern describes a drum kit and a step sequence for it, and turns
// them into a playable kit and a list of timed hits.
package pattern

import (
	"fmt"
	"math"
	"strings"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-drums/drums"
	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
)

const (
	DefaultTempo = 120
	DefaultSteps = 16
	MaxSteps     = 64
	MaxBars      = 256
	MinTempo     = 20
	MaxTempo     = 400

	// AccentVelocity and GhostVelocity are the velocities of 'x' and 'o'
	// steps.
	AccentVelocity = 1.0
	GhostVelocity  = 0.6
)

// Pattern is a kit plus a step grid. Steps is the number of steps per 4/4 bar.
type Pattern struct {
	SampleRate int
	Tempo      float32
	Steps      int
	Bars       int
	Master     float32
	Reverb     drums.ReverbSettings
	Slots      [drums.Slots]*Slot
}

// Slot is one kit voice and its step line.
type Slot struct {
	Engine drums.Engine
	Setup  drums.Setup
	Knobs  map[string]int
	Send   float32
	Seed   uint64
	// Hits holds one velocity per step; zero is a rest. The line repeats
	// until the pattern ends.
	Hits []float32
}

var defaultLines = [drums.Slots]string{
	drums.Kick:      "x...x...x...x...",
	drums.Snare:     "....x.......x..o",
	drums.Stick:     "..o.....o.....o.",
	drums.Clap:      "............x...",
	drums.ClosedHat: "x.o.x.o.x.o.x.o.",
	drums.OpenHat:   "......x.......x.",
	drums.Ride:      "",
	drums.Bongo:     ".......o...o....",
}

// Default returns a one-bar groove on the built-in kit.
func Default() *Pattern {
	p := &Pattern{
		SampleRate: dsp.DefaultSampleRate,
		Tempo:      DefaultTempo,
		Steps:      DefaultSteps,
		Bars:       1,
		Master:     1,
		Reverb:     drums.DefaultReverb,
	}
	for i := range p.Slots {
		t := drums.Type(i)
		hits, _ := ParseSteps(defaultLines[i])
		p.Slots[i] = &Slot{
			Engine: drums.DefaultEngine(t),
			Setup:  drums.DefaultSetup(t),
			Send:   0.15,
			Seed:   uint64(i) + 1,
			Hits:   hits,
		}
	}
	return p
}

// ParseSteps reads a step line: 'x' accent, 'o' ghost, '.' or '-' rest.
// Spaces and '|' separate groups and are skipped.
func ParseSteps(line string) ([]float32, error) {
	out := make([]float32, 0, len(line))
	for i, c := range line {
		switch c {
		case 'x', 'X':
			out = append(out, AccentVelocity)
		case 'o', 'O':
			out = append(out, GhostVelocity)
		case '.', '-':
			out = append(out, 0)
		case ' ', '|':
		default:
			return nil, fmt.Errorf("step %d: unexpected %q", i, c)
		}
	}
	return out, nil
}

// FormatSteps is the inverse of ParseSteps. Velocities at or above the
// midpoint between ghost and accent print as 'x'.
func FormatSteps(hits []float32) string {
	var b strings.Builder
	for _, v := range hits {
		switch {
		case v <= 0:
			b.WriteByte('.')
		case v >= (AccentVelocity+GhostVelocity)/2:
			b.WriteByte('x')
		default:
			b.WriteByte('o')
		}
	}
	return b.String()
}

// Config returns the processing configuration for blockSize.
func (p *Pattern) Config(blockSize int) dsp.Config {
	return dsp.NewConfig(
		dspcore.WithSampleRate(float64(p.SampleRate)),
		dspcore.WithBlockSize(blockSize),
	)
}

// FramesPerStep returns the step length at the pattern's tempo.
func (p *Pattern) FramesPerStep() int {
	stepsPerBeat := float64(p.Steps) / 4
	return int(math.Round(float64(p.SampleRate) * 60 / (float64(p.Tempo) * stepsPerBeat)))
}

// TotalSteps returns the number of steps in the whole pattern.
func (p *Pattern) TotalSteps() int { return p.Steps * p.Bars }

// Frames returns the render length: every step plus room for the longest
// decay to ring out.
func (p *Pattern) Frames() int {
	tail := envelope.MsToSamples(envelope.MaxDecayMs, p.SampleRate)
	return p.TotalSteps()*p.FramesPerStep() + tail
}

// Events expands every slot's step line into timed hits, ordered by frame
// then slot.
func (p *Pattern) Events() []drums.Event {
	fps := p.FramesPerStep()
	var out []drums.Event
	for step := 0; step < p.TotalSteps(); step++ {
		for slot, s := range p.Slots {
			if s == nil || len(s.Hits) == 0 {
				continue
			}
			if v := s.Hits[step%len(s.Hits)]; v > 0 {
				out = append(out, drums.Event{Frame: step * fps, Slot: slot, Velocity: v})
			}
		}
	}
	return out
}

// Validate checks the global fields and every slot setup.
func (p *Pattern) Validate() error {
	switch {
	case p.SampleRate < 8000 || p.SampleRate > 192000:
		return fmt.Errorf("sample_rate %d out of range [8000, 192000]", p.SampleRate)
	case !(p.Tempo >= MinTempo && p.Tempo <= MaxTempo):
		return fmt.Errorf("tempo %g out of range [%d, %d]", p.Tempo, MinTempo, MaxTempo)
	case p.Steps < 1 || p.Steps > MaxSteps:
		return fmt.Errorf("steps %d out of range [1, %d]", p.Steps, MaxSteps)
	case p.Bars < 1 || p.Bars > MaxBars:
		return fmt.Errorf("bars %d out of range [1, %d]", p.Bars, MaxBars)
	case !(p.Master >= 0 && p.Master <= drums.MaxVolume):
		return fmt.Errorf("master %g out of range [0, %d]", p.Master, drums.MaxVolume)
	}
	for i, s := range p.Slots {
		if s == nil {
			continue
		}
		if err := s.Setup.Validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

// NewDrum builds a fresh drum for slot with its knobs applied.
func (p *Pattern) NewDrum(cfg dsp.Config, slot int) (drums.Drum, error) {
	if slot < 0 || slot >= drums.Slots || p.Slots[slot] == nil {
		return nil, fmt.Errorf("slot %d is empty", slot)
	}
	s := p.Slots[slot]
	d, err := drums.New(s.Engine, cfg, s.Setup, s.Seed)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, err)
	}
	for _, name := range sortedKeys(s.Knobs) {
		idx, err := drums.KnobIndex(d, name)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
		if err := d.Set(idx, s.Knobs[name]); err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
	}
	return d, nil
}

// Build assembles the kit: drums, sends, reverb and master gain.
func (p *Pattern) Build(cfg dsp.Config) (*drums.Kit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	k := drums.NewKit(cfg)
	for i, s := range p.Slots {
		if s == nil {
			continue
		}
		d, err := p.NewDrum(k.Config(), i)
		if err != nil {
			return nil, err
		}
		if err := k.SetDrum(i, d); err != nil {
			return nil, err
		}
		if err := k.SetSend(i, s.Send); err != nil {
			return nil, err
		}
	}
	if err := k.SetMaster(p.Master); err != nil {
		return nil, err
	}
	k.SetReverb(p.Reverb)
	return k, nil
}
