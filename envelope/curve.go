package envelope

import (
	"fmt"
	"math"
)

// Curve shapes a stage's progress. Apply falls from 1 at x=0 to 0 at x=1;
// attack uses its complement.
type Curve int

const (
	Linear Curve = iota
	Exponential
)

const expSteepness = 5.0

var expFloor = math.Exp(-expSteepness)

func (c Curve) String() string {
	switch c {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	default:
		return fmt.Sprintf("curve(%d)", int(c))
	}
}

// Apply evaluates the falling curve at progress x, clamped to [0,1].
func (c Curve) Apply(x float32) float32 {
	return float32(c.apply(float64(x)))
}

func (c Curve) apply(x float64) float64 {
	if !(x > 0) {
		return 1
	}
	if x >= 1 {
		return 0
	}
	if c == Exponential {
		return (math.Exp(-expSteepness*x) - expFloor) / (1 - expFloor)
	}
	return 1 - x
}
