package dsp

import "math"

// SineSize is the number of entries in the shared sine table.
const SineSize = 1024

// sineTable holds one cycle plus a guard point equal to the first entry, so
// interpolation across the wrap needs no branch.
var sineTable = func() (t [SineSize + 1]float32) {
	for i := 0; i < SineSize; i++ {
		t[i] = float32(math.Sin(2 * math.Pi * float64(i) / SineSize))
	}
	t[SineSize] = t[0]
	return t
}()

// Sin returns sin(2*pi*phase) from the lookup table with linear
// interpolation. Any finite phase is accepted and wrapped into [0,1).
func Sin(phase float32) float32 {
	return lookup(sineTable[:], SineSize, phase)
}

// lookup interpolates a table of n entries followed by one guard entry.
func lookup(table []float32, n int, phase float32) float32 {
	phase = wrap(phase)
	pos := phase * float32(n)
	i := int(pos)
	if i >= n {
		i = n - 1
	}
	frac := pos - float32(i)
	a := table[i]
	return a + frac*(table[i+1]-a)
}

// wrap reduces x into [0,1). Non-finite input maps to 0.
func wrap(x float32) float32 {
	if x >= 0 && x < 1 {
		return x
	}
	if !IsFinite(x) {
		return 0
	}
	x -= float32(math.Floor(float64(x)))
	if x >= 1 || x < 0 {
		return 0
	}
	return x
}

// Phase is a wrapping oscillator phase in cycles.
type Phase struct {
	value float32
}

// Next advances the phase by increment (cycles per sample) and returns it.
func (p *Phase) Next(increment float32) float32 {
	p.value = wrap(p.value + increment)
	return p.value
}

// Get returns the current phase without advancing.
func (p *Phase) Get() float32 { return p.value }

// Set jumps to phase, wrapped into [0,1).
func (p *Phase) Set(phase float32) { p.value = wrap(phase) }

// Reset returns the phase to zero.
func (p *Phase) Reset() { p.value = 0 }

// Increment converts a frequency to a per-sample phase increment. Invalid
// frequencies and sample rates produce 0.
func Increment(hz float32, sampleRate int) float32 {
	if sampleRate <= 0 || !IsFinite(hz) || hz <= 0 {
		return 0
	}
	return hz / float32(sampleRate)
}
