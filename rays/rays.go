// Package rays prepares the fan of light rays handed to an integrator and
// turns the integrator's final states into angle samples.
package rays

import (
	"fmt"
	"math"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/spacetime"
	"github.com/echoflaresat/blackhole/vectors"
)

// Spacing selects how incidence angles are distributed over the fan.
type Spacing int

const (
	// SpacingEqual spreads angles uniformly over [0, fov/2].
	SpacingEqual Spacing = iota
	// SpacingPerspective spreads them like pixels of a flat screen over
	// [-fov/2, fov/2].
	SpacingPerspective
)

func (s Spacing) String() string {
	switch s {
	case SpacingEqual:
		return "equal"
	case SpacingPerspective:
		return "perspective"
	default:
		return fmt.Sprintf("Spacing(%d)", int(s))
	}
}

// ParseSpacing maps a spacing name to its value.
func ParseSpacing(name string) (Spacing, error) {
	switch name {
	case "equal", "":
		return SpacingEqual, nil
	case "perspective":
		return SpacingPerspective, nil
	}
	return 0, fmt.Errorf("unknown ray spacing %q", name)
}

// Ray is an initial ray state in the native chart of a Space.
type Ray struct {
	Incidence float64
	Pos       vectors.Vec4
	Dir       vectors.Vec4
}

// Final is the state an integrator reports for one ray, in the native chart.
type Final struct {
	Collided bool
	Pos      vectors.Vec4
	Dir      vectors.Vec4
}

// incidence returns the i-th of n incidence angles.
func (s Spacing) incidence(fov float64, i, n int) float64 {
	if n < 2 {
		return 0
	}
	frac := float64(i) / float64(n-1)
	if s == SpacingPerspective {
		return math.Atan(math.Tan(fov/2) * (2*frac - 1))
	}
	return fov / 2 * frac
}

// Fan emits n rays from radius r0 at t = 0. Angles the chart cannot
// represent are skipped, so the result may be shorter than n.
func Fan(space spacetime.Space, r0, fov float64, n int, spacing Spacing) []Ray {
	out := make([]Ray, 0, n)
	for i := 0; i < n; i++ {
		alpha := spacing.incidence(fov, i, n)
		ok, pos, dir := space.EmitRay(0, r0, alpha)
		if !ok {
			continue
		}
		out = append(out, Ray{Incidence: alpha, Pos: pos, Dir: dir})
	}
	return out
}

// EscapeAngle returns the direction, relative to the emission axis, in
// which a ray with canonical state (pos, dir) leaves. The result lies in
// [-π, π].
func EscapeAngle(pos, dir vectors.Vec4) float64 {
	r := pos[vectors.R]
	phi := pos[vectors.Phi]

	dt := math.Abs(dir[vectors.T])
	dr := dir[vectors.R] / dt
	dphi := dir[vectors.Phi] / dt

	alpha := math.Atan2(r*dphi, -dr)
	return math.Remainder(alpha-phi, 2*math.Pi)
}

// World maps a chart area to a world id. Charts that do not tell worlds
// apart report AreaNone, which is our own universe.
func World(area int) int {
	if area == spacetime.AreaNone {
		return spacetime.AreaExterior
	}
	return area
}

// Angles converts integrator results into angle samples, one per ray and in
// fan order. A ray is a collided sample when the integrator says so or when
// its final state cannot be read back into the canonical chart.
func Angles(space spacetime.Space, fan []Ray, finals []Final) ([]angles.Sample, error) {
	if len(fan) != len(finals) {
		return nil, fmt.Errorf("%d rays but %d results", len(fan), len(finals))
	}

	samples := make([]angles.Sample, len(fan))
	for i, ray := range fan {
		f := finals[i]
		dir := f.Dir
		pt := space.TransformFrom(f.Pos, &dir)

		s := angles.Sample{
			Incidence: ray.Incidence,
			World:     World(pt.Area),
			Collided:  f.Collided || !pt.PosValid || !pt.DirValid,
		}
		if !s.Collided {
			s.Escape = EscapeAngle(pt.Pos, pt.Dir)
		}
		samples[i] = s
	}
	return samples, nil
}
