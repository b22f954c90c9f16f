package spacetime

import (
	"math"

	"github.com/echoflaresat/blackhole/vectors"
	"gonum.org/v1/gonum/mat"
)

// lemaitreCapture is the relative distance to the horizon treated as capture.
const lemaitreCapture = 1.5e-6

// Lemaitre is the chart of free-falling observers, (tau, rho, theta, phi).
type Lemaitre struct {
	rs float64
}

func (Lemaitre) sealed() {}

func (Lemaitre) Kind() Kind { return KindLemaitre }

func (l Lemaitre) Horizon() float64 { return l.rs }

// radius recovers r from rho - tau. It is NaN when rho < tau.
func (l Lemaitre) radius(tau, rho float64) float64 {
	d := rho - tau
	if d < 0 {
		return math.NaN()
	}
	return math.Pow(1.5*d, 2.0/3.0) * math.Cbrt(l.rs)
}

// timeShift is tau - t at radius r.
func (l Lemaitre) timeShift(r float64) float64 {
	x := math.Sqrt(r / l.rs)
	return 2*math.Sqrt(r*l.rs) + l.rs*math.Log(math.Abs((x-1)/(x+1)))
}

// jacobian returns dtau/dr and drho/dr at fixed t.
func (l Lemaitre) jacobian(r float64) (a, b float64) {
	k := 1 - l.rs/r
	return math.Sqrt(l.rs/r) / k, math.Sqrt(r/l.rs) / k
}

func (l Lemaitre) Metric(pos vectors.Vec4) *mat.DiagDense {
	r := l.radius(pos[0], pos[1])
	sin := math.Sin(pos[vectors.Theta])
	return mat.NewDiagDense(4, []float64{1, -l.rs / r, -r * r, -r * r * sin * sin})
}

func (l Lemaitre) EmitRay(t0, r0, alpha float64) (bool, vectors.Vec4, vectors.Vec4) {
	if r0 <= l.rs {
		return false, vectors.Vec4{}, vectors.Vec4{}
	}
	p := l.TransformTo(emitPosition(t0, r0), nil)
	if !p.PosValid {
		return false, p.Pos, vectors.Vec4{}
	}
	return true, p.Pos, nullDirection(l.Metric(p.Pos), alpha)
}

func (l Lemaitre) TransformTo(pos vectors.Vec4, dir *vectors.Vec4) Point {
	t, r := pos[vectors.T], pos[vectors.R]
	if !(r > 0) || r == l.rs {
		return Point{Pos: pos}
	}

	tau := t + l.timeShift(r)
	rho := tau + 2.0/3.0*math.Pow(r, 1.5)/math.Sqrt(l.rs)
	out := Point{
		Pos:      vectors.Vec4{tau, rho, pos[2], pos[3]},
		PosValid: true,
	}
	if r < l.rs || dir == nil {
		return out
	}

	a, b := l.jacobian(r)
	dt, dr := dir[vectors.T], dir[vectors.R]
	out.Dir = vectors.Vec4{dt + a*dr, dt + b*dr, dir[2], dir[3]}
	out.DirValid = true
	return out
}

func (l Lemaitre) TransformFrom(pos vectors.Vec4, dir *vectors.Vec4) Point {
	tau, rho := pos[0], pos[1]
	r := l.radius(tau, rho)
	if math.IsNaN(r) || r <= l.rs {
		return Point{Pos: vectors.Vec4{0, r, pos[2], pos[3]}}
	}

	out := Point{
		Pos:      vectors.Vec4{tau - l.timeShift(r), r, pos[2], pos[3]},
		PosValid: true,
	}
	if dir == nil {
		return out
	}

	a, b := l.jacobian(r)
	D := b - a
	dtau, drho := dir[0], dir[1]
	out.Dir = vectors.Vec4{(b*dtau - a*drho) / D, (drho - dtau) / D, dir[2], dir[3]}
	out.DirValid = true
	return out
}

func (l Lemaitre) CheckCollision(pos vectors.Vec4) bool {
	p := l.TransformFrom(pos, nil)
	if !p.PosValid {
		return true
	}
	return math.Abs(p.Pos[vectors.R]-l.rs)/l.rs < lemaitreCapture
}
