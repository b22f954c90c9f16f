package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/exp/mmap"
)

// tileCacheSize is the number of decompressed tiles kept in memory.
const tileCacheSize = 200

type tiledTiff struct {
	header      TiffHeader
	reader      *mmap.ReaderAt
	cache       *lru.Cache // tileIndex -> []byte
	tilesAcross int
}

// LoadTiledTiff memory-maps a tiled TIFF, uncompressed or deflated.
// Decompressed tiles are kept in an LRU cache shared by all readers.
func LoadTiledTiff(path string) (Image, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	header, err := parseTiffHeader(reader)
	if err == nil {
		err = checkTiled(header)
	}
	if err != nil {
		reader.Close()
		return nil, err
	}

	cache, err := lru.New(tileCacheSize)
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &tiledTiff{
		header:      header,
		reader:      reader,
		cache:       cache,
		tilesAcross: (header.Width + header.TileWidth - 1) / header.TileWidth,
	}, nil
}

func checkTiled(h TiffHeader) error {
	if len(h.TileOffsets) == 0 || h.TileWidth <= 0 || h.TileHeight <= 0 {
		return fmt.Errorf("not a tiled TIFF")
	}
	if len(h.TileOffsets) != len(h.TileByteCounts) {
		return fmt.Errorf("invalid tile offset/length")
	}
	if h.Compression != CompressionNone && h.Compression != CompressionDeflate {
		return fmt.Errorf("unsupported compression: %d", h.Compression)
	}
	return h.checkPixelFormat()
}

func (t *tiledTiff) ColorModel() color.Model {
	return color.RGBAModel
}

func (t *tiledTiff) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.header.Width, t.header.Height)
}

func (t *tiledTiff) Close() error {
	t.cache.Purge()
	return t.reader.Close()
}

func (t *tiledTiff) At(x, y int) color.Color {
	h := t.header
	index := (y/h.TileHeight)*t.tilesAcross + x/h.TileWidth

	var tile []byte
	if val, ok := t.cache.Get(index); ok {
		tile = val.([]byte)
	} else {
		tile = t.loadTile(index)
		t.cache.Add(index, tile)
	}

	localX := x % h.TileWidth
	localY := y % h.TileHeight
	off := (localY*h.TileWidth + localX) * h.SamplesPerPixel
	r, g, b := h.pixel(tile[off:])
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func (t *tiledTiff) loadTile(index int) []byte {
	h := t.header
	buf := make([]byte, h.TileByteCounts[index])
	if _, err := t.reader.ReadAt(buf, int64(h.TileOffsets[index])); err != nil {
		panic(fmt.Sprintf("failed to read tile %d: %v", index, err))
	}
	if h.Compression != CompressionDeflate {
		return buf
	}

	r, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		panic(fmt.Sprintf("zlib decompression error in tile %d: %v", index, err))
	}
	defer r.Close()
	tile, err := io.ReadAll(r)
	if err != nil {
		panic(fmt.Sprintf("zlib read error in tile %d: %v", index, err))
	}
	return tile
}
