// Package tuning maps MIDI note numbers to frequencies inside the range the
// synthesis kernel supports.
package tuning

import (
	"errors"
	"math"
)

const (
	// MinHz and MaxHz bound every frequency the kernel is asked to render.
	MinHz = 20.0
	MaxHz = 16000.0

	NumNotes = 128
	A4Note   = 69
	A4Hz     = 440.0
)

// ErrNonPositiveFrequency is returned by HzToMidi for zero, negative or
// non-finite input.
var ErrNonPositiveFrequency = errors.New("tuning: frequency must be positive and finite")

var noteTable = func() (t [NumNotes]float32) {
	for n := range t {
		hz := A4Hz * math.Pow(2, float64(n-A4Note)/12)
		t[n] = float32(math.Min(math.Max(hz, MinHz), MaxHz))
	}
	return t
}()

// MidiToHz returns the equal-tempered frequency of note. Notes outside 0..127
// are clamped.
func MidiToHz(note int) float32 {
	return noteTable[min(max(note, 0), NumNotes-1)]
}

// HzToMidi returns the nearest MIDI note for hz, clamped to 0..127.
func HzToMidi(hz float32) (int, error) {
	f := float64(hz)
	if !(f > 0) || math.IsInf(f, 0) {
		return 0, ErrNonPositiveFrequency
	}
	n := int(math.Round(A4Note + 12*math.Log2(f/A4Hz)))
	return min(max(n, 0), NumNotes-1), nil
}

// ClampHz limits hz to [MinHz, MaxHz]. Zero, negative and NaN map to MinHz.
func ClampHz(hz float32) float32 {
	if !(hz > MinHz) {
		return MinHz
	}
	if hz > MaxHz {
		return MaxHz
	}
	return hz
}

// Table returns a copy of the note table.
func Table() [NumNotes]float32 { return noteTable }
