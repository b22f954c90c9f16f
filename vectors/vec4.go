package vectors

import "math"

// Vec4 holds one ray state component (position or direction) in a
// four-dimensional chart: time-like, radial-like, polar, azimuthal.
type Vec4 [4]float64

// T, R, Theta and Phi name the canonical component indices.
const (
	T = iota
	R
	Theta
	Phi
)

// Add returns v + o.
func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]}
}

// Scale returns v * s.
func (v Vec4) Scale(s float64) Vec4 {
	return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

// IsFinite reports whether every component is a finite number.
func (v Vec4) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
