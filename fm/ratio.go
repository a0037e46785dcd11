package fm

import "math"

// ratios are operator frequency multiples, strictly increasing. The
// irrational entries (sqrt2, pi, sqrt3 and their multiples) give the
// inharmonic partials metallic drums need.
var ratios = [...]float32{
	0.25, 0.5, 0.75, 1, 1.25, 1.41, 1.5, 1.57, 1.73, 2,
	2.25, 2.5, 2.82, 3, 3.14, 3.46, 3.5, 4, 4.24, 4.5,
	5, 5.19, 5.5, 6, 6.28, 6.5, 7, 7.07, 7.5, 8,
	8.48, 9, 9.42, 10, 11, 12, 13, 14, 15, 16,
	17,
}

// DefaultRatioIndex selects ratio 1.
const DefaultRatioIndex = 3

// Ratios returns a copy of the ratio table.
func Ratios() []float32 { return append([]float32(nil), ratios[:]...) }

// RatioCount returns the number of table entries.
func RatioCount() int { return len(ratios) }

// RatioAt returns the ratio at index, clamped to the table.
func RatioAt(index int) float32 {
	return ratios[min(max(index, 0), len(ratios)-1)]
}

// KnobToRatioIndex maps a 0..100 knob onto the table.
func KnobToRatioIndex(knob int) int {
	knob = min(max(knob, 0), 100)
	return int(math.Round(float64(knob) * float64(len(ratios)-1) / 100))
}

// RatioIndexToKnob is the inverse of KnobToRatioIndex.
func RatioIndexToKnob(index int) int {
	index = min(max(index, 0), len(ratios)-1)
	return int(math.Round(float64(index) * 100 / float64(len(ratios)-1)))
}

// NearestRatio returns the index of the table entry closest to r. Invalid
// ratios select DefaultRatioIndex.
func NearestRatio(r float32) int {
	if !(r > 0) || math.IsInf(float64(r), 0) {
		return DefaultRatioIndex
	}
	best, bestDist := 0, math.Inf(1)
	for i, v := range ratios {
		if d := math.Abs(float64(v - r)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
