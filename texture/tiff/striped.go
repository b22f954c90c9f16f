package tiff

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/exp/mmap"
)

type stripedTiff struct {
	header TiffHeader
	reader *mmap.ReaderAt
}

// LoadStripedTiff memory-maps an uncompressed striped TIFF. Pixels are read
// on demand, so arbitrarily large sky maps cost no heap.
func LoadStripedTiff(path string) (Image, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	header, err := parseTiffHeader(reader)
	if err == nil {
		err = checkStriped(header)
	}
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &stripedTiff{header: header, reader: reader}, nil
}

func checkStriped(h TiffHeader) error {
	if len(h.StripOffsets) == 0 {
		return fmt.Errorf("not a striped TIFF")
	}
	if len(h.StripOffsets) != len(h.StripByteCounts) {
		return fmt.Errorf("invalid strip offset/length")
	}
	if h.Compression != CompressionNone {
		return fmt.Errorf("unsupported compression: %d", h.Compression)
	}
	return h.checkPixelFormat()
}

func (t *stripedTiff) ColorModel() color.Model {
	return color.RGBAModel
}

func (t *stripedTiff) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.header.Width, t.header.Height)
}

func (t *stripedTiff) Close() error {
	return t.reader.Close()
}

func (t *stripedTiff) At(x, y int) color.Color {
	h := t.header

	strip := y / h.RowsPerStrip
	localY := y % h.RowsPerStrip
	idx := h.StripOffsets[strip] + (localY*h.Width+x)*h.SamplesPerPixel

	var buf [3]byte
	px := buf[:h.SamplesPerPixel]
	if _, err := t.reader.ReadAt(px, int64(idx)); err != nil {
		panic(fmt.Sprintf("could not read pixel at (%d,%d): %v", x, y, err))
	}
	r, g, b := h.pixel(px)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
