package drums

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func centsToRatio(cents float32) float32 {
	return pow2Approx(cents / 1200.0)
}

// equalPower returns left and right gains for pan in [0,1].
func equalPower(pan float32) (float32, float32) {
	a := float64(pan) * math.Pi / 2
	return float32(math.Cos(a)), float32(math.Sin(a))
}

// decayCoef is the per-sample multiplier that falls to 1/e after ms.
func decayCoef(ms float32, sampleRate int) float32 {
	if !(ms > 0) || sampleRate <= 0 {
		return 0
	}
	return float32(math.Exp(-1000 / (float64(ms) * float64(sampleRate))))
}

func maxf(a float32, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a float32, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
