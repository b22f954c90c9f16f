package spacetime

import (
	"math"

	"github.com/echoflaresat/blackhole/vectors"
	"gonum.org/v1/gonum/mat"
)

// kruskalCapture is the smallest r/rs a ray may reach.
const kruskalCapture = 2e-3

// Kruskal is the Kruskal-Szekeres chart (T, X, theta, phi) of the
// maximally extended spacetime.
type Kruskal struct {
	rs float64
}

func (Kruskal) sealed() {}

func (Kruskal) Kind() Kind { return KindKruskal }

func (k Kruskal) Horizon() float64 { return k.rs }

// relativeRadius inverts X^2 - T^2 = (r/rs - 1) e^(r/rs) for r/rs.
func relativeRadius(T, X float64) float64 {
	return 1 + LambertW((X*X-T*T)/math.E)
}

// radiusSlope returns W'((X^2-T^2)/e) given q = X^2 - T^2.
// q = -1 is the singularity, where the slope diverges.
func radiusSlope(q float64) float64 {
	if q < -1+1e-5 {
		q = -1 + 1e-6
	}
	return LambertWSlope(q / math.E)
}

// area classifies a Kruskal point into one of the four quadrants.
func area(T, X float64) int {
	if X*X-T*T > 0 {
		if X > 0 {
			return AreaExterior
		}
		return AreaMirror
	}
	if T > 0 {
		return AreaBlack
	}
	return AreaWhite
}

func (k Kruskal) Metric(pos vectors.Vec4) *mat.DiagDense {
	rr := relativeRadius(pos[0], pos[1])
	f := 4 * k.rs * k.rs / rr * math.Exp(-rr)
	r := rr * k.rs
	sin := math.Sin(pos[vectors.Theta])
	return mat.NewDiagDense(4, []float64{f, -f, -r * r, -r * r * sin * sin})
}

func (k Kruskal) EmitRay(t0, r0, alpha float64) (bool, vectors.Vec4, vectors.Vec4) {
	if !(r0 > 0) {
		return false, vectors.Vec4{}, vectors.Vec4{}
	}
	p := k.TransformTo(emitPosition(t0, r0), nil)
	if !p.PosValid {
		return false, p.Pos, vectors.Vec4{}
	}
	return true, p.Pos, nullDirection(k.Metric(p.Pos), alpha)
}

func (k Kruskal) TransformTo(pos vectors.Vec4, dir *vectors.Vec4) Point {
	t, r := pos[vectors.T], pos[vectors.R]
	rs := k.rs

	kr := r/rs - 1
	exp := math.Exp(r / (2 * rs))
	sinh := math.Sinh(t / (2 * rs))
	cosh := math.Cosh(t / (2 * rs))

	if r <= rs {
		s := math.Sqrt(-kr)
		return Point{
			Pos:      vectors.Vec4{s * exp * cosh, s * exp * sinh, pos[2], pos[3]},
			PosValid: true,
		}
	}

	s := math.Sqrt(kr)
	out := Point{
		Pos:      vectors.Vec4{s * exp * sinh, s * exp * cosh, pos[2], pos[3]},
		PosValid: true,
	}
	if dir == nil {
		return out
	}

	dt, dr := dir[vectors.T], dir[vectors.R]
	dk := dr / rs
	dexp := exp * dr / (2 * rs)
	dsinh := cosh * dt / (2 * rs)
	dcosh := sinh * dt / (2 * rs)
	ds := 0.5 / s * dk

	dT := ds*exp*sinh + s*dexp*sinh + s*exp*dsinh
	dX := ds*exp*cosh + s*dexp*cosh + s*exp*dcosh
	out.Dir = vectors.Vec4{dT, dX, dir[2], dir[3]}
	out.DirValid = true
	return out
}

func (k Kruskal) TransformFrom(pos vectors.Vec4, dir *vectors.Vec4) Point {
	T, X := pos[0], pos[1]
	rs := k.rs

	q := X*X - T*T
	r := relativeRadius(T, X) * rs

	var t float64
	switch {
	case T == 0 && X == 0:
		t = 0
	case math.Abs(T) < math.Abs(X):
		t = 2 * rs * math.Atanh(T/X)
	default:
		t = 2 * rs * math.Atanh(X/T)
	}

	out := Point{
		Pos:      vectors.Vec4{t, r, pos[2], pos[3]},
		PosValid: true,
		Area:     area(T, X),
	}
	if r <= rs || dir == nil {
		return out
	}

	dT, dX := dir[0], dir[1]
	out.Dir = vectors.Vec4{
		2 * rs * (X*dT - T*dX) / q,
		2 * rs / math.E * radiusSlope(q) * (X*dX - T*dT),
		dir[2],
		dir[3],
	}
	out.DirValid = true
	return out
}

func (k Kruskal) CheckCollision(pos vectors.Vec4) bool {
	return relativeRadius(pos[0], pos[1]) < kruskalCapture
}
