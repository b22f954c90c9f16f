package colors

import (
	"image/color"
	"testing"
)

func TestFromStandardColor(t *testing.T) {
	cases := []struct {
		name string
		in   color.Color
		want Color4
	}{
		{"opaque rgba", color.RGBA{255, 0, 51, 255}, Color4{1, 0, 0.2, 1}},
		{"nrgba", color.NRGBA{0, 255, 0, 0}, Color4{0, 1, 0, 0}},
		{"transparent", color.RGBA{}, Color4{}},
		{"gray16", color.Gray16{Y: 0xffff}, Color4{1, 1, 1, 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := FromStandardColor(c.in); got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestToNRGBA(t *testing.T) {
	got := Color4{R: 1.5, G: 0.5, B: -1, A: 1}.ToNRGBA()
	want := color.NRGBA{255, 127, 0, 255}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMaxRGB(t *testing.T) {
	if got := RGB(0.1, 0.7, 0.3).MaxRGB(); got != 0.7 {
		t.Fatalf("MaxRGB = %v", got)
	}
}
