package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml
const (
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagStripOffsets              = 273
	TagSamplesPerPixel           = 277
	TagRowsPerStrip              = 278
	TagStripByteCounts           = 279
	TagPlanarConfiguration       = 284
	TagTileWidth                 = 322
	TagTileLength                = 323
	TagTileOffsets               = 324
	TagTileByteCounts            = 325
)

// Compression schemes.
const (
	CompressionNone    = 1
	CompressionDeflate = 8
)

// Photometric interpretations.
const (
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
)

// Field types used for offsets and counts.
const (
	typeShort = 3
	typeLong  = 4
)

var ErrInvalidTiffHeader = errors.New("invalid TIFF header")

// TiffHeader is the subset of the first IFD needed to address pixels of an
// uncompressed or deflated 8-bit image.
type TiffHeader struct {
	ByteOrder       binary.ByteOrder
	Width, Height   int
	SamplesPerPixel int
	BitsPerSample   []int
	Photometric     int
	Compression     int
	PlanarConfig    int

	// Strip layout
	RowsPerStrip    int
	StripOffsets    []int
	StripByteCounts []int

	// Tile layout
	TileWidth      int
	TileHeight     int
	TileOffsets    []int
	TileByteCounts []int
}

// ifdEntry is one raw 12-byte directory entry.
type ifdEntry struct {
	typ   uint16
	count uint32
	value [4]byte
}

type ifdReader struct {
	r  io.ReaderAt
	bo binary.ByteOrder
}

func (d ifdReader) read(offset int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := d.r.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// scalar decodes an inline SHORT or LONG value.
func (d ifdReader) scalar(e ifdEntry) int {
	if e.typ == typeShort {
		return int(d.bo.Uint16(e.value[:2]))
	}
	return int(d.bo.Uint32(e.value[:]))
}

// ints decodes a SHORT or LONG array, inline or at its offset.
func (d ifdReader) ints(e ifdEntry) ([]int, error) {
	size := 4
	if e.typ == typeShort {
		size = 2
	}
	n := int(e.count)
	raw := e.value[:]
	if n*size > 4 {
		var err error
		raw, err = d.read(int64(d.bo.Uint32(e.value[:])), n*size)
		if err != nil {
			return nil, err
		}
	}
	out := make([]int, n)
	for i := range out {
		if size == 2 {
			out[i] = int(d.bo.Uint16(raw[i*2:]))
		} else {
			out[i] = int(d.bo.Uint32(raw[i*4:]))
		}
	}
	return out, nil
}

func parseTiffHeader(reader io.ReaderAt) (TiffHeader, error) {
	head := make([]byte, 8)
	if _, err := reader.ReadAt(head, 0); err != nil {
		return TiffHeader{}, ErrInvalidTiffHeader
	}

	var bo binary.ByteOrder
	switch string(head[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return TiffHeader{}, ErrInvalidTiffHeader
	}
	if bo.Uint16(head[2:4]) != 42 {
		return TiffHeader{}, ErrInvalidTiffHeader
	}

	d := ifdReader{r: reader, bo: bo}
	ifd := int64(bo.Uint32(head[4:8]))
	countRaw, err := d.read(ifd, 2)
	if err != nil {
		return TiffHeader{}, fmt.Errorf("read IFD: %w", err)
	}
	n := int(bo.Uint16(countRaw))
	raw, err := d.read(ifd+2, n*12)
	if err != nil {
		return TiffHeader{}, fmt.Errorf("read IFD entries: %w", err)
	}

	entries := make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		b := raw[i*12 : (i+1)*12]
		e := ifdEntry{typ: bo.Uint16(b[2:4]), count: bo.Uint32(b[4:8])}
		copy(e.value[:], b[8:12])
		entries[bo.Uint16(b[0:2])] = e
	}

	hdr := TiffHeader{
		ByteOrder:       bo,
		SamplesPerPixel: -1,
		Photometric:     -1,
		Compression:     -1,
		PlanarConfig:    1,
	}
	scalars := map[uint16]*int{
		TagImageWidth:                &hdr.Width,
		TagImageLength:               &hdr.Height,
		TagCompression:               &hdr.Compression,
		TagPhotometricInterpretation: &hdr.Photometric,
		TagSamplesPerPixel:           &hdr.SamplesPerPixel,
		TagRowsPerStrip:              &hdr.RowsPerStrip,
		TagPlanarConfiguration:       &hdr.PlanarConfig,
		TagTileWidth:                 &hdr.TileWidth,
		TagTileLength:                &hdr.TileHeight,
	}
	for tag, dst := range scalars {
		if e, ok := entries[tag]; ok {
			*dst = d.scalar(e)
		}
	}
	arrays := map[uint16]*[]int{
		TagBitsPerSample:   &hdr.BitsPerSample,
		TagStripOffsets:    &hdr.StripOffsets,
		TagStripByteCounts: &hdr.StripByteCounts,
		TagTileOffsets:     &hdr.TileOffsets,
		TagTileByteCounts:  &hdr.TileByteCounts,
	}
	for tag, dst := range arrays {
		if e, ok := entries[tag]; ok {
			if *dst, err = d.ints(e); err != nil {
				return TiffHeader{}, fmt.Errorf("tag %d: %w", tag, err)
			}
		}
	}

	if hdr.RowsPerStrip == 0 {
		hdr.RowsPerStrip = hdr.Height
	}
	return hdr, nil
}

// checkPixelFormat accepts 8-bit RGB or 8-bit grayscale, chunky layout.
func (h TiffHeader) checkPixelFormat() error {
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", h.Width, h.Height)
	}
	if h.PlanarConfig != 1 {
		return fmt.Errorf("unsupported planar configuration: %d", h.PlanarConfig)
	}
	if len(h.BitsPerSample) == 0 || h.BitsPerSample[0] != 8 {
		return fmt.Errorf("unsupported bits per sample: %v", h.BitsPerSample)
	}
	switch h.Photometric {
	case PhotometricBlackIsZero:
		if h.SamplesPerPixel != 1 {
			return fmt.Errorf("unsupported grayscale format")
		}
	case PhotometricRGB:
		if h.SamplesPerPixel != 3 {
			return fmt.Errorf("unsupported RGB format")
		}
	default:
		return fmt.Errorf("unsupported photometric: %d", h.Photometric)
	}
	return nil
}

// pixel decodes one chunky pixel starting at px.
func (h TiffHeader) pixel(px []byte) (r, g, b byte) {
	if h.Photometric == PhotometricRGB {
		return px[0], px[1], px[2]
	}
	return px[0], px[0], px[0]
}
