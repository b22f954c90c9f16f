package vectors

import "math"

// Vec3 is a simple 3D vector with float64 components.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product v · o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Norm returns the Euclidean length ||v||.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector v / ||v||.
// If ||v|| == 0, it returns the zero vector (0,0,0).
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	inv := 1.0 / n
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// AngleTo returns the angle between two unit vectors in [0, π].
func (v Vec3) AngleTo(o Vec3) float64 {
	return math.Acos(clampUnit(v.Dot(o)))
}

// RotateInPlane turns v by angle inside the plane whose normal is axis.
// axis must be perpendicular to v; a zero axis leaves only the cos term.
func (v Vec3) RotateInPlane(axis Vec3, angle float64) Vec3 {
	p := axis.Cross(v).Normalize()
	return v.Scale(math.Cos(angle)).Add(p.Scale(math.Sin(angle)))
}

// FromSpherical returns the unit vector for polar angle theta (from +Z)
// and azimuth phi (from +X towards +Y).
func FromSpherical(theta, phi float64) Vec3 {
	st := math.Sin(theta)
	return Vec3{
		X: st * math.Cos(phi),
		Y: st * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// Spherical is the inverse of FromSpherical for unit vectors.
// phi is in (-π, π].
func (v Vec3) Spherical() (theta, phi float64) {
	return math.Acos(clampUnit(v.Z)), math.Atan2(v.Y, v.X)
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
