package texture

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	xtiff "golang.org/x/image/tiff"

	"github.com/echoflaresat/blackhole/colors"
)

const eps = 1e-9

// checker returns a W×H image whose brightest channel is 200.
func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(50 * x), G: uint8(40 * y), B: 200, A: 255})
		}
	}
	return img
}

func near(a, b colors.Color4) bool {
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func texelColor(x, y int) colors.Color4 {
	return colors.RGB(float64(50*x)/200, float64(40*y)/200, 1)
}

func TestSampleExactTexel(t *testing.T) {
	const w, h = 4, 4
	tex := New(checker(w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			theta := math.Pi * float64(y) / h
			phi := 2 * math.Pi * float64(x) / w
			if got, want := tex.Sample(theta, phi), texelColor(x, y); !near(got, want) {
				t.Errorf("Sample(%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}
}

func TestSampleInterpolates(t *testing.T) {
	const w, h = 4, 4
	tex := New(checker(w, h))
	phi := 2 * math.Pi * 1.5 / w
	got := tex.Sample(0, phi)
	want := texelColor(1, 0).Add(texelColor(2, 0)).ScaleRGB(0.5)
	if !near(got, want) {
		t.Errorf("midpoint = %+v, want %+v", got, want)
	}
}

func TestSampleWrapsLongitude(t *testing.T) {
	const w, h = 4, 4
	tex := New(checker(w, h))

	// halfway between the last column and the first
	phi := 2 * math.Pi * (w - 0.5) / w
	got := tex.Sample(0, phi)
	want := texelColor(w-1, 0).Add(texelColor(0, 0)).ScaleRGB(0.5)
	if !near(got, want) {
		t.Errorf("seam = %+v, want %+v", got, want)
	}

	for _, phi := range []float64{0.3, 1.7, 4.2} {
		a := tex.Sample(1.1, phi)
		for _, k := range []float64{-2, -1, 1, 3} {
			b := tex.Sample(1.1, phi+k*2*math.Pi)
			if math.Abs(a.R-b.R) > 1e-6 || math.Abs(a.G-b.G) > 1e-6 {
				t.Errorf("phi %v shifted by %v turns: %+v != %+v", phi, k, b, a)
			}
		}
	}
}

func TestSampleClampsRows(t *testing.T) {
	const w, h = 4, 4
	tex := New(checker(w, h))
	if got, want := tex.Sample(math.Pi, 0), texelColor(0, h-1); !near(got, want) {
		t.Errorf("south pole = %+v, want %+v", got, want)
	}
	if got, want := tex.Sample(-0.2, 0), texelColor(0, 0); !near(got, want) {
		t.Errorf("above north pole = %+v, want %+v", got, want)
	}
}

func TestSampleNormalizesToPeak(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 51})
	img.SetGray(1, 1, color.Gray{Y: 102})
	tex := New(img)
	if got := tex.Sample(0, 0); math.Abs(got.R-0.5) > eps {
		t.Errorf("normalized = %v, want 0.5", got.R)
	}
}

func TestSampleDarkImage(t *testing.T) {
	tex := New(image.NewGray(image.Rect(0, 0, 2, 2)))
	if got := tex.Sample(1, 1); got.MaxRGB() != 0 || got.A != 1 {
		t.Errorf("dark sample = %+v", got)
	}
}

func TestLoadCodecs(t *testing.T) {
	dir := t.TempDir()
	img := checker(4, 4)

	pngPath := filepath.Join(dir, "sky.png")
	f, err := os.Create(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tifPath := filepath.Join(dir, "sky.tif")
	f, err = os.Create(tifPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := xtiff.Encode(f, img, &xtiff.Options{Compression: xtiff.Deflate}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	for _, path := range []string{pngPath, tifPath} {
		tex, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if tex.Width != 4 || tex.Height != 4 {
			t.Errorf("%s: size %dx%d", path, tex.Width, tex.Height)
		}
		if got, want := tex.Sample(math.Pi/4, math.Pi/2), texelColor(1, 1); !near(got, want) {
			t.Errorf("%s: Sample = %+v, want %+v", path, got, want)
		}
		if err := tex.Close(); err != nil {
			t.Errorf("%s: Close: %v", path, err)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error")
	}
}
