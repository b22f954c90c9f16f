// Package texture samples equirectangular sky maps by spherical angles.
package texture

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"os"

	legacytiff "github.com/echoflaresat/tiff"

	"github.com/echoflaresat/blackhole/colors"
	"github.com/echoflaresat/blackhole/texture/tiff"

	_ "image/jpeg" // register JPEG format with image.Decode
	_ "image/png"  // register PNG format with image.Decode

	_ "golang.org/x/image/bmp"  // register BMP format with image.Decode
	_ "golang.org/x/image/webp" // register WebP format with image.Decode
)

const fullTurn = 2 * math.Pi

// Texture is an equirectangular sky image. Columns span longitude [0, 2π),
// rows span colatitude [0, π]. Samples are scaled so that the brightest
// channel of the whole image is 1.
type Texture struct {
	Width  int
	Height int
	img    image.Image
	scale  float64
	closer io.Closer
}

// New wraps an in-memory image.
func New(img image.Image) *Texture {
	b := img.Bounds()
	t := &Texture{
		Width:  b.Dx(),
		Height: b.Dy(),
		img:    img,
		scale:  1,
	}
	if peak := t.peak(); peak > 0 {
		t.scale = 1 / peak
	}
	return t
}

// Load opens a sky image. Large TIFFs are memory-mapped; everything else is
// decoded through the registered image codecs.
func Load(path string) (*Texture, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	t := New(img)
	if c, ok := img.(io.Closer); ok {
		t.closer = c
	}
	return t, nil
}

// Close releases the memory map backing the texture, if any.
func (t *Texture) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func loadImage(path string) (image.Image, error) {
	img, err := tiff.Load(path)
	if err == nil {
		return img, nil
	}
	isTiff := !errors.Is(err, tiff.ErrInvalidTiffHeader)
	if isTiff {
		slog.Warn("failed to map TIFF, decoding in memory", "path", path, "error", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if isTiff {
		return legacytiff.Decode(f)
	}
	decoded, _, err := image.Decode(f)
	return decoded, err
}

// peak returns the largest RGB channel over the image.
func (t *Texture) peak() float64 {
	b := t.img.Bounds()
	peak := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m := colors.FromStandardColor(t.img.At(x, y)).MaxRGB(); m > peak {
				peak = m
			}
		}
	}
	return peak
}

func (t *Texture) texel(x, y int) colors.Color4 {
	b := t.img.Bounds()
	return colors.FromStandardColor(t.img.At(b.Min.X+x, b.Min.Y+y))
}

// Sample returns the bilinearly interpolated colour at colatitude theta and
// longitude phi. Longitude wraps around; rows beyond the poles are clamped.
func (t *Texture) Sample(theta, phi float64) colors.Color4 {
	if t.Width == 0 || t.Height == 0 || math.IsNaN(theta) || math.IsNaN(phi) || math.IsInf(phi, 0) {
		return colors.Black()
	}
	theta = max(0, min(math.Pi, theta))
	phi = math.Mod(phi, fullTurn)
	if phi < 0 {
		phi += fullTurn
	}

	x := phi / fullTurn * float64(t.Width)
	y := theta / math.Pi * float64(t.Height)

	xm, xp, wxm, wxp := weights(x)
	ym, yp, wym, wyp := weights(y)

	col := func(i int) int {
		i %= t.Width
		if i < 0 {
			i += t.Width
		}
		return i
	}
	row := func(j int) int {
		return max(0, min(t.Height-1, j))
	}

	c := t.texel(col(xm), row(ym)).ScaleRGB(wxm * wym).
		Add(t.texel(col(xp), row(ym)).ScaleRGB(wxp * wym)).
		Add(t.texel(col(xm), row(yp)).ScaleRGB(wxm * wyp)).
		Add(t.texel(col(xp), row(yp)).ScaleRGB(wxp * wyp))
	c = c.ScaleRGB(t.scale)
	c.A = 1
	return c
}

// weights returns the neighbouring integer coordinates of v and their
// renormalized weights. An exact integer hits a single texel.
func weights(v float64) (lo, hi int, wlo, whi float64) {
	flo, fhi := math.Floor(v), math.Ceil(v)
	wlo = 1 - (v - flo)
	whi = 1 - (fhi - v)
	sum := wlo + whi
	return int(flo), int(fhi), wlo / sum, whi / sum
}
