// Package spacetime describes the charts a light ray is prepared in and
// read back from. Three metrics of the same black hole are supported:
// Schwarzschild, Lemaitre and Kruskal. The last one covers the maximally
// extended spacetime, so a ray can end up in one of four causally distinct
// areas ("worlds").
//
// The canonical chart is Schwarzschild-like: (t, r, theta, phi).
// Every Space converts between the canonical chart and its own native
// chart, which is the chart the integrator works in.
package spacetime

import (
	"fmt"
	"math"

	"github.com/echoflaresat/blackhole/vectors"
	"gonum.org/v1/gonum/mat"
)

// Kind enumerates the supported metrics.
type Kind int

const (
	KindSchwarzschild Kind = iota
	KindLemaitre
	KindKruskal
)

func (k Kind) String() string {
	switch k {
	case KindSchwarzschild:
		return "schwarzschild"
	case KindLemaitre:
		return "lemaitre"
	case KindKruskal:
		return "kruskal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a metric name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{KindSchwarzschild, KindLemaitre, KindKruskal} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// Kruskal quadrants. Area 0 means the chart does not classify points.
const (
	AreaNone     = 0
	AreaExterior = 1 // our universe, X > |T|
	AreaBlack    = 2 // black hole interior, T > |X|
	AreaMirror   = 3 // the other universe, X < -|T|
	AreaWhite    = 4 // white hole interior, T < -|X|
)

// Point is the result of a chart conversion. Dir is meaningful only
// when DirValid is set.
type Point struct {
	Pos      vectors.Vec4
	Dir      vectors.Vec4
	PosValid bool
	DirValid bool

	// Area is set by TransformFrom of charts that tell worlds apart.
	Area int
}

// Space is the closed set of metrics. Implementations live in this
// package only.
type Space interface {
	Kind() Kind

	// Horizon returns the Schwarzschild radius rs.
	Horizon() float64

	// Metric returns the diagonal metric tensor at pos in the native chart,
	// with signature (+, -, -, -).
	Metric(pos vectors.Vec4) *mat.DiagDense

	// EmitRay builds a light-like ray at canonical (t0, r0, pi/2, 0)
	// leaving at angle alpha from the inward radial direction.
	// It fails when r0 lies outside the chart's domain.
	EmitRay(t0, r0, alpha float64) (ok bool, pos, dir vectors.Vec4)

	// TransformTo converts a canonical state into the native chart.
	// dir may be nil when only the position is needed.
	TransformTo(pos vectors.Vec4, dir *vectors.Vec4) Point

	// TransformFrom converts a native state back into the canonical chart.
	TransformFrom(pos vectors.Vec4, dir *vectors.Vec4) Point

	// CheckCollision reports whether a native position has been captured.
	CheckCollision(pos vectors.Vec4) bool

	sealed()
}

// New returns the Space of the given kind for a hole of radius rs.
func New(kind Kind, rs float64) (Space, error) {
	if !(rs > 0) {
		return nil, fmt.Errorf("horizon radius must be positive, got %v", rs)
	}
	switch kind {
	case KindSchwarzschild:
		return Schwarzschild{rs: rs}, nil
	case KindLemaitre:
		return Lemaitre{rs: rs}, nil
	case KindKruskal:
		return Kruskal{rs: rs}, nil
	default:
		return nil, fmt.Errorf("unsupported metric %v", kind)
	}
}

// nullDirection picks a tangent vector at a point with metric g so that
// the spatial part leaves at angle alpha from the inward radial direction,
// and solves the time component from g_tt dt^2 + sum g_ii dx_i^2 = 0.
// The time component is negative: rays are traced back from the observer.
func nullDirection(g *mat.DiagDense, alpha float64) vectors.Vec4 {
	d1 := -math.Cos(alpha) / math.Sqrt(-g.At(1, 1))
	d2 := 0.0
	d3 := math.Sin(alpha) / math.Sqrt(-g.At(3, 3))

	spatial := math.Sqrt(-d1*d1*g.At(1, 1) - d2*d2*g.At(2, 2) - d3*d3*g.At(3, 3))
	d0 := -spatial / math.Sqrt(g.At(0, 0))
	return vectors.Vec4{d0, d1, d2, d3}
}

// emitPosition is the canonical starting point of every ray.
func emitPosition(t0, r0 float64) vectors.Vec4 {
	return vectors.Vec4{t0, r0, math.Pi / 2, 0}
}
