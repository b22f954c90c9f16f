package spacetime

import (
	"math"

	"github.com/echoflaresat/blackhole/vectors"
	"gonum.org/v1/gonum/mat"
)

// schwarzschildCapture is the capture radius in units of rs.
const schwarzschildCapture = 1.05

// Schwarzschild uses the canonical chart as its native chart.
type Schwarzschild struct {
	rs float64
}

func (Schwarzschild) sealed() {}

func (Schwarzschild) Kind() Kind { return KindSchwarzschild }

func (s Schwarzschild) Horizon() float64 { return s.rs }

func (s Schwarzschild) Metric(pos vectors.Vec4) *mat.DiagDense {
	r := pos[vectors.R]
	sin := math.Sin(pos[vectors.Theta])
	k := 1 - s.rs/r
	return mat.NewDiagDense(4, []float64{k, -1 / k, -r * r, -r * r * sin * sin})
}

func (s Schwarzschild) EmitRay(t0, r0, alpha float64) (bool, vectors.Vec4, vectors.Vec4) {
	pos := emitPosition(t0, r0)
	if r0 <= s.rs {
		// the static chart has no time-like t below the horizon
		return false, pos, vectors.Vec4{}
	}
	return true, pos, nullDirection(s.Metric(pos), alpha)
}

func (s Schwarzschild) TransformTo(pos vectors.Vec4, dir *vectors.Vec4) Point {
	return identity(pos, dir)
}

func (s Schwarzschild) TransformFrom(pos vectors.Vec4, dir *vectors.Vec4) Point {
	return identity(pos, dir)
}

func (s Schwarzschild) CheckCollision(pos vectors.Vec4) bool {
	return pos[vectors.R] < schwarzschildCapture*s.rs
}

func identity(pos vectors.Vec4, dir *vectors.Vec4) Point {
	p := Point{Pos: pos, PosValid: true}
	if dir != nil {
		p.Dir = *dir
		p.DirValid = true
	}
	return p
}
