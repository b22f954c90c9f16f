package colors

import (
	"image/color"
	"math"
)

// Color4 is a linear RGBA color with float64 components, nominally in [0,1].
type Color4 struct {
	R, G, B, A float64
}

// RGB returns an opaque color.
func RGB(r, g, b float64) Color4 {
	return Color4{R: r, G: g, B: b, A: 1}
}

func Black() Color4 {
	return Color4{R: 0, G: 0, B: 0, A: 1}
}

// RGBA implements color.Color so a Color4 can be stored in any image.
func (c Color4) RGBA() (r, g, b, a uint32) {
	cc := c.Clamp01()
	// pre-multiplied 16-bit
	return uint32(cc.R * cc.A * 65535),
		uint32(cc.G * cc.A * 65535),
		uint32(cc.B * cc.A * 65535),
		uint32(cc.A * 65535)
}

// FromStandardColor converts any color.Color into a de-multiplied Color4.
func FromStandardColor(c color.Color) Color4 {
	switch v := c.(type) {
	case Color4:
		return v
	case color.RGBA:
		if v.A == 0xff {
			return From8BitRgb(v.R, v.G, v.B)
		}
	case color.NRGBA:
		return Color4{
			R: float64(v.R) / 255.0,
			G: float64(v.G) / 255.0,
			B: float64(v.B) / 255.0,
			A: float64(v.A) / 255.0,
		}
	}

	r16, g16, b16, a16 := c.RGBA()
	if a16 == 0 {
		return Color4{}
	}
	invA := float64(0xFFFF) / float64(a16)
	return Color4{
		R: float64(r16) * invA / 65535.0,
		G: float64(g16) * invA / 65535.0,
		B: float64(b16) * invA / 65535.0,
		A: float64(a16) / 65535.0,
	}
}

// From8BitRgb builds an opaque color from 8-bit channels.
func From8BitRgb(r, g, b byte) Color4 {
	return Color4{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
		A: 1,
	}
}

// Add returns c + o (component-wise).
func (c Color4) Add(o Color4) Color4 {
	return Color4{c.R + o.R, c.G + o.G, c.B + o.B, c.A + o.A}
}

// ScaleRGB multiplies the color channels and keeps alpha.
func (c Color4) ScaleRGB(s float64) Color4 {
	return Color4{c.R * s, c.G * s, c.B * s, c.A}
}

// MaxRGB returns the largest of the three color channels.
func (c Color4) MaxRGB() float64 {
	return math.Max(c.R, math.Max(c.G, c.B))
}

// Clamp01 clamps each component into [0,1].
func (c Color4) Clamp01() Color4 {
	return Color4{
		R: clamp01(c.R),
		G: clamp01(c.G),
		B: clamp01(c.B),
		A: clamp01(c.A),
	}
}

// ToNRGBA returns 8-bit channels, truncating after clamping.
func (c Color4) ToNRGBA() color.NRGBA {
	return color.NRGBA{
		to8bit(c.R),
		to8bit(c.G),
		to8bit(c.B),
		to8bit(c.A),
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func to8bit(x float64) uint8 {
	return uint8(255.0 * clamp01(x))
}
