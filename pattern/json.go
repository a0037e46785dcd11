package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-drums/drums"
	"github.com/cwbudde/algo-drums/tuning"
)

// File is the JSON schema for patterns. Every field is optional and applies
// on top of Default.
type File struct {
	SampleRate *int                   `json:"sample_rate"`
	Tempo      *float32               `json:"tempo"`
	Steps      *int                   `json:"steps"`
	Bars       *int                   `json:"bars"`
	Master     *float32               `json:"master"`
	Reverb     *ReverbSetting         `json:"reverb"`
	Slots      map[string]SlotSetting `json:"slots"`
}

// ReverbSetting overrides the kit send effect.
type ReverbSetting struct {
	Room *float32 `json:"room"`
	Damp *float32 `json:"damp"`
	Wet  *float32 `json:"wet"`
}

// SlotSetting is a partial slot override. Setting type resets the slot to
// that type's defaults before the other fields apply.
type SlotSetting struct {
	Type        *string        `json:"type"`
	Engine      *string        `json:"engine"`
	Volume      *float32       `json:"volume"`
	Pan         *float32       `json:"pan"`
	AttackMs    *int           `json:"attack_ms"`
	DecayMs     *int           `json:"decay_ms"`
	Fundamental *float32       `json:"fundamental"`
	Note        *int           `json:"note"`
	Knobs       map[string]int `json:"knobs"`
	Send        *float32       `json:"send"`
	Seed        *uint64        `json:"seed"`
	Steps       *string        `json:"steps"`
}

// LoadJSON loads a pattern file and applies it on top of Default.
func LoadJSON(path string) (*Pattern, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := Default()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed pattern file onto an existing pattern. Slots are
// applied in key order so the first error is deterministic.
func ApplyFile(dst *Pattern, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination pattern")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		dst.SampleRate = *f.SampleRate
	}
	if f.Tempo != nil {
		dst.Tempo = *f.Tempo
	}
	if f.Steps != nil {
		dst.Steps = *f.Steps
	}
	if f.Bars != nil {
		dst.Bars = *f.Bars
	}
	if f.Master != nil {
		dst.Master = *f.Master
	}
	if r := f.Reverb; r != nil {
		if err := applyUnit("reverb.room", r.Room, &dst.Reverb.Room); err != nil {
			return err
		}
		if err := applyUnit("reverb.damp", r.Damp, &dst.Reverb.Damp); err != nil {
			return err
		}
		if err := applyUnit("reverb.wet", r.Wet, &dst.Reverb.Wet); err != nil {
			return err
		}
	}

	for _, k := range sortedKeys(f.Slots) {
		slot, err := strconv.Atoi(k)
		if err != nil || slot < 0 || slot >= drums.Slots {
			return fmt.Errorf("invalid slots key %q (expected 0..%d)", k, drums.Slots-1)
		}
		if err := applySlot(dst, slot, f.Slots[k]); err != nil {
			return fmt.Errorf("slots[%d]: %w", slot, err)
		}
	}
	return dst.Validate()
}

func applySlot(dst *Pattern, slot int, o SlotSetting) error {
	s := dst.Slots[slot]
	if o.Type != nil {
		t, err := drums.ParseType(*o.Type)
		if err != nil {
			return err
		}
		seed := uint64(slot) + 1
		if s != nil {
			seed = s.Seed
		}
		s = &Slot{Engine: drums.DefaultEngine(t), Setup: drums.DefaultSetup(t), Seed: seed}
	}
	if s == nil {
		return fmt.Errorf("empty slot needs a type")
	}
	dst.Slots[slot] = s

	if o.Engine != nil {
		e, err := drums.ParseEngine(strings.ToLower(strings.TrimSpace(*o.Engine)))
		if err != nil {
			return err
		}
		s.Engine = e
	}
	if o.Volume != nil {
		s.Setup.Gain.Volume = *o.Volume
	}
	if o.Pan != nil {
		s.Setup.Gain.Pan = *o.Pan
	}
	if o.AttackMs != nil {
		s.Setup.AttackMs = *o.AttackMs
	}
	if o.DecayMs != nil {
		s.Setup.DecayMs = *o.DecayMs
	}
	if o.Note != nil && o.Fundamental != nil {
		return fmt.Errorf("note and fundamental are mutually exclusive")
	}
	if o.Note != nil {
		if *o.Note < 0 || *o.Note >= tuning.NumNotes {
			return fmt.Errorf("note %d out of range [0, %d)", *o.Note, tuning.NumNotes)
		}
		s.Setup.Fundamental = tuning.MidiToHz(*o.Note)
	}
	if o.Fundamental != nil {
		s.Setup.Fundamental = *o.Fundamental
	}
	if err := applyUnit("send", o.Send, &s.Send); err != nil {
		return err
	}
	if o.Seed != nil {
		s.Seed = *o.Seed
	}
	if o.Steps != nil {
		hits, err := ParseSteps(*o.Steps)
		if err != nil {
			return err
		}
		s.Hits = hits
	}
	if len(o.Knobs) > 0 {
		if s.Knobs == nil {
			s.Knobs = make(map[string]int, len(o.Knobs))
		}
		for _, name := range sortedKeys(o.Knobs) {
			v := o.Knobs[name]
			if v < drums.KnobMin || v > drums.KnobMax {
				return fmt.Errorf("knob %q value %d out of range [%d, %d]", name, v, drums.KnobMin, drums.KnobMax)
			}
			s.Knobs[name] = v
		}
	}
	return s.Setup.Validate()
}

func applyUnit(name string, src *float32, dst *float32) error {
	if src == nil {
		return nil
	}
	if !(*src >= 0 && *src <= 1) {
		return fmt.Errorf("%s must be in [0,1]", name)
	}
	*dst = *src
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
