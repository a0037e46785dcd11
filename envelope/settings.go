package envelope

import (
	"math"

	"github.com/cwbudde/algo-drums/dsp"
)

const (
	// MaxAttackMs is the attack duration at 100%.
	MaxAttackMs = 1000
	// MaxDecayMs is the decay and release duration at 100%.
	MaxDecayMs = 3000

	DefaultAttackPct = 1
	DefaultDecayPct  = 10

	// DefaultBlendMs is the retrigger crossfade used by Trigger.
	DefaultBlendMs = 6
)

// Settings is an immutable description of envelope timing in samples at a
// given sample rate.
type Settings struct {
	SampleRate     int
	AttackSamples  int
	DecaySamples   int
	Sustain        float32
	ReleaseSamples int
}

// Default returns the percussive attack/decay shape used by new voices.
func Default(sampleRate int) Settings {
	return FromPercent(sampleRate, DefaultAttackPct, DefaultDecayPct, 0, 0)
}

// FromPercent maps 0..100 knob values to sample counts. Attack scales against
// MaxAttackMs, decay and release against MaxDecayMs.
func FromPercent(sampleRate, attack, decay, sustain, release int) Settings {
	sampleRate = normRate(sampleRate)
	return Settings{
		SampleRate:     sampleRate,
		AttackSamples:  PercentToSamples(attack, MaxAttackMs, sampleRate),
		DecaySamples:   PercentToSamples(decay, MaxDecayMs, sampleRate),
		Sustain:        float32(clampPct(sustain)) / 100,
		ReleaseSamples: PercentToSamples(release, MaxDecayMs, sampleRate),
	}
}

// FromMs builds an attack/decay envelope from millisecond durations, clamped
// to the stage maxima.
func FromMs(sampleRate, attackMs, decayMs int) Settings {
	sampleRate = normRate(sampleRate)
	return Settings{
		SampleRate:    sampleRate,
		AttackSamples: MsToSamples(min(max(attackMs, 0), MaxAttackMs), sampleRate),
		DecaySamples:  MsToSamples(min(max(decayMs, 0), MaxDecayMs), sampleRate),
	}
}

// FromSamples builds settings from raw sample counts.
func FromSamples(sampleRate, attack, decay int, sustain float32, release int) Settings {
	return Settings{
		SampleRate:     normRate(sampleRate),
		AttackSamples:  max(attack, 0),
		DecaySamples:   max(decay, 0),
		Sustain:        dsp.Clamp(sustain, 0, 1),
		ReleaseSamples: max(release, 0),
	}
}

func (s Settings) AttackPct() int { return SamplesToPercent(s.AttackSamples, MaxAttackMs, s.SampleRate) }
func (s Settings) DecayPct() int  { return SamplesToPercent(s.DecaySamples, MaxDecayMs, s.SampleRate) }
func (s Settings) ReleasePct() int {
	return SamplesToPercent(s.ReleaseSamples, MaxDecayMs, s.SampleRate)
}
func (s Settings) SustainPct() int { return int(math.Round(float64(s.Sustain) * 100)) }

func (s Settings) AttackMs() int { return SamplesToMs(s.AttackSamples, s.SampleRate) }
func (s Settings) DecayMs() int  { return SamplesToMs(s.DecaySamples, s.SampleRate) }

// Total is the attack plus decay length in samples.
func (s Settings) Total() int { return s.AttackSamples + s.DecaySamples }

// WithAttackPct returns a copy with the attack set from a percentage.
func (s Settings) WithAttackPct(pct int) Settings {
	s.SampleRate = normRate(s.SampleRate)
	s.AttackSamples = PercentToSamples(pct, MaxAttackMs, s.SampleRate)
	return s
}

// WithDecayPct returns a copy with the decay set from a percentage.
func (s Settings) WithDecayPct(pct int) Settings {
	s.SampleRate = normRate(s.SampleRate)
	s.DecaySamples = PercentToSamples(pct, MaxDecayMs, s.SampleRate)
	return s
}

// PercentToSamples converts a 0..100 percentage of maxMs to samples. 0% is 0
// samples and any positive percentage is at least one sample.
func PercentToSamples(pct, maxMs, sampleRate int) int {
	pct = clampPct(pct)
	if pct == 0 || maxMs <= 0 {
		return 0
	}
	n := int(math.Round(float64(pct) / 100 * float64(maxMs) * float64(normRate(sampleRate)) / 1000))
	return max(n, 1)
}

// SamplesToPercent is the inverse of PercentToSamples, clamped to 0..100.
func SamplesToPercent(samples, maxMs, sampleRate int) int {
	if samples <= 0 || maxMs <= 0 {
		return 0
	}
	full := float64(maxMs) * float64(normRate(sampleRate)) / 1000
	return clampPct(int(math.Round(float64(samples) * 100 / full)))
}

// MsToSamples converts milliseconds to the nearest sample count.
func MsToSamples(ms, sampleRate int) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(float64(ms) * float64(normRate(sampleRate)) / 1000))
}

// SamplesToMs converts samples to the nearest millisecond.
func SamplesToMs(samples, sampleRate int) int {
	if samples <= 0 {
		return 0
	}
	return int(math.Round(float64(samples) * 1000 / float64(normRate(sampleRate))))
}

// PercentToMs converts a 0..100 percentage of maxMs to milliseconds.
func PercentToMs(pct, maxMs int) int {
	return int(math.Round(float64(clampPct(pct)) / 100 * float64(maxMs)))
}

func clampPct(p int) int {
	return min(max(p, 0), 100)
}

func normRate(sr int) int {
	if sr <= 0 {
		return dsp.DefaultSampleRate
	}
	return sr
}
