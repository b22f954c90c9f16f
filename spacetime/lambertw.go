package spacetime

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/iterate"
)

const lambertIterations = 64

// LambertW returns the principal real branch W0(z), the solution of
// w e^w = z with w >= -1. Arguments at or below -1/e are clamped to -1.
func LambertW(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return z
	case math.E*z+1 <= 0:
		// at or below the branch point -1/e
		return -1
	case z == 0:
		return 0
	case math.IsInf(z, 1):
		return z
	}

	start := lambertGuess(z)
	better := func(w float64) float64 { return halley(z, w) }
	w, err := iterate.FullPrecision(better, start, lambertIterations)
	if err == nil {
		return w
	}

	// Close to the branch point the iteration can jitter in the last bits
	// and never meet the full precision criterion.
	w = start
	for i := 0; i < lambertIterations; i++ {
		n := better(w)
		if math.IsNaN(n) || n == w {
			break
		}
		w = n
	}
	return w
}

// LambertWSlope returns dW0/dz. Callers keep z away from -1/e, where the
// slope is infinite.
func LambertWSlope(z float64) float64 {
	return 1 / (z + math.Exp(LambertW(z)))
}

func lambertGuess(z float64) float64 {
	switch {
	case z < -0.25:
		// series around the branch point in p = sqrt(2(ez+1))
		p := math.Sqrt(2 * (math.E*z + 1))
		return base.Horner(p, -1, 1, -1.0/3, 11.0/72)
	case z < 3:
		return math.Log1p(z)
	default:
		l1 := math.Log(z)
		l2 := math.Log(l1)
		return l1 - l2 + l2/l1
	}
}

// halley performs one Halley step for w e^w - z = 0.
func halley(z, w float64) float64 {
	if w <= -1 {
		w = -1 + 1e-12
	}
	ew := math.Exp(w)
	f := w*ew - z
	wp1 := w + 1
	return w - f/(ew*wp1-(w+2)*f/(2*wp1))
}
