package drums

import (
	"fmt"
	"math"
)

// Knob values are integers in 0..100.
const (
	KnobMin = 0
	KnobMax = 100
)

type knobCurve int

const (
	linearKnob knobCurve = iota
	// expKnob spaces values geometrically between lo and hi (both > 0).
	expKnob
	// stepKnob selects one of int(hi)+1 discrete values starting at 0.
	stepKnob
)

// knob maps a 0..100 encoding onto a parameter range. Continuous curves
// round-trip exactly: pct(value(k)) == k for every k in range.
type knob struct {
	name   string
	lo, hi float32
	curve  knobCurve
	def    int
}

func (k knob) value(pct int) float32 {
	pct = min(max(pct, KnobMin), KnobMax)
	t := float64(pct) / KnobMax
	lo, hi := float64(k.lo), float64(k.hi)
	switch k.curve {
	case expKnob:
		if pct == KnobMax {
			return k.hi
		}
		return float32(lo * math.Pow(hi/lo, t))
	case stepKnob:
		return float32(math.Round(t * hi))
	}
	return float32(lo*(1-t) + hi*t)
}

func (k knob) pct(v float32) int {
	x := float64(v)
	if math.IsNaN(x) {
		return k.def
	}
	lo, hi := float64(k.lo), float64(k.hi)
	var t float64
	switch k.curve {
	case expKnob:
		if x <= lo {
			return KnobMin
		}
		t = math.Log(x/lo) / math.Log(hi/lo)
	case stepKnob:
		if hi <= 0 {
			return KnobMin
		}
		t = x / hi
	default:
		if hi == lo {
			return KnobMin
		}
		t = (x - lo) / (hi - lo)
	}
	return min(max(int(math.Round(t*KnobMax)), KnobMin), KnobMax)
}

// clamp limits v to the knob's range.
func (k knob) clamp(v float32) float32 {
	lo, hi := k.lo, k.hi
	if k.curve == stepKnob {
		lo = 0
	}
	if v != v {
		return k.value(k.def)
	}
	return minf(maxf(v, lo), hi)
}

func checkKnob(knobs []knob, idx, value int) error {
	if idx < 0 || idx >= len(knobs) {
		return fmt.Errorf("knob index %d out of range [0, %d)", idx, len(knobs))
	}
	if value < KnobMin || value > KnobMax {
		return fmt.Errorf("%s: value %d out of range [%d, %d]", knobs[idx].name, value, KnobMin, KnobMax)
	}
	return nil
}

func knobNames(knobs []knob) []string {
	out := make([]string, len(knobs))
	for i, k := range knobs {
		out[i] = k.name
	}
	return out
}
