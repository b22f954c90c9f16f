package render

import (
	"math"

	"github.com/echoflaresat/blackhole/vectors"
)

// Camera maps pixels of an equirectangular frame to view directions and
// bends them through the angle table.
type Camera struct {
	// Height of the full frame; the width is twice the height.
	Height int
	// Base is added to the longitude of every pixel.
	Base float64
	// Boresight is the unit axis pointing at the hole. Incidence angles are
	// measured from it.
	Boresight vectors.Vec3
}

// NewCamera normalizes the boresight. A zero boresight defaults to +X.
func NewCamera(height int, base float64, boresight vectors.Vec3) Camera {
	if boresight.Norm() == 0 {
		boresight = vectors.Vec3{X: 1}
	}
	return Camera{Height: height, Base: base, Boresight: boresight.Normalize()}
}

// ComputeRay returns the view direction of pixel (x, y).
func (c Camera) ComputeRay(x, y int) vectors.Vec3 {
	h := float64(c.Height)
	theta := float64(y) / h * math.Pi
	phi := float64(x)/(2*h)*2*math.Pi + c.Base
	return vectors.FromSpherical(theta, phi)
}

// Incidence returns the angle between view and the boresight.
func (c Camera) Incidence(view vectors.Vec3) float64 {
	return view.AngleTo(c.Boresight)
}

// Deflect turns view by -deflection in the plane it spans with the
// boresight. When view is parallel to the boresight the plane is undefined
// and only the sign of cos(deflection) survives.
func (c Camera) Deflect(view vectors.Vec3, deflection float64) vectors.Vec3 {
	axis := view.Cross(c.Boresight).Normalize()
	return view.RotateInPlane(axis, -deflection).Normalize()
}
