// Package tiff reads very large 8-bit TIFF images through memory maps,
// without decoding them up front. Only the layouts used for sky maps are
// supported: chunky RGB or grayscale, striped uncompressed or tiled
// uncompressed/deflated. Anything else is left to a full decoder.
package tiff

import (
	"errors"
	"image"
	"io"
)

// Image is a memory-mapped TIFF. Close releases the mapping.
type Image interface {
	image.Image
	io.Closer
}

// Load tries the striped reader and then the tiled reader. The returned
// error wraps ErrInvalidTiffHeader when the file is not a TIFF at all.
func Load(path string) (Image, error) {
	img, err := LoadStripedTiff(path)
	if err == nil {
		return img, nil
	}
	img, tiledErr := LoadTiledTiff(path)
	if tiledErr == nil {
		return img, nil
	}
	if errors.Is(err, ErrInvalidTiffHeader) {
		return nil, err
	}
	return nil, errors.Join(err, tiledErr)
}
