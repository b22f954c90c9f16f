// Command merge_tiles stitches renders of horizontal bands (or any grid of
// equally sized tiles) into one image, optionally writing a scaled preview.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/echoflaresat/blackhole/render"
)

func main() {
	preview := flag.String("preview", "", "Also write a preview scaled to -preview-height")
	previewHeight := flag.Int("preview-height", 512, "Height of the preview image")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-preview out.jpg] <cols>x<rows> <output> <tile1> <tile2> ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		flag.Usage()
		os.Exit(1)
	}

	cols, rows, err := parseLayout(args[0])
	if err != nil {
		log.Fatal(err)
	}
	output := args[1]
	inputFiles := args[2:]
	if len(inputFiles) != cols*rows {
		log.Fatalf("Expected %d input files, got %d", cols*rows, len(inputFiles))
	}

	canvas, err := merge(cols, inputFiles)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("-> creating %s\n", output)
	if err := render.Save(output, canvas); err != nil {
		log.Fatalf("Failed to write %s: %v", output, err)
	}

	if *preview != "" {
		fmt.Printf("-> creating %s\n", *preview)
		if err := render.Save(*preview, scale(canvas, *previewHeight)); err != nil {
			log.Fatalf("Failed to write %s: %v", *preview, err)
		}
	}
}

func parseLayout(s string) (cols, rows int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid tile format: %s (expected NxM)", s)
	}
	if cols, err = strconv.Atoi(parts[0]); err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid cols: %q", parts[0])
	}
	if rows, err = strconv.Atoi(parts[1]); err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid rows: %q", parts[1])
	}
	return cols, rows, nil
}

// merge places the tiles row-major. Rows may differ in height, as uneven
// band splits do; widths must agree.
func merge(cols int, paths []string) (*image.NRGBA, error) {
	tiles := make([]image.Image, len(paths))
	for i, path := range paths {
		fmt.Printf("Processing %s\n", path)
		tile, err := loadTile(path)
		if err != nil {
			return nil, err
		}
		tiles[i] = tile
	}

	tileW := tiles[0].Bounds().Dx()
	rowHeights := make([]int, (len(tiles)+cols-1)/cols)
	for i, tile := range tiles {
		if tile.Bounds().Dx() != tileW {
			return nil, fmt.Errorf("tile width mismatch for %q: expected %d, got %d", paths[i], tileW, tile.Bounds().Dx())
		}
		row := i / cols
		if h := tile.Bounds().Dy(); h > rowHeights[row] {
			rowHeights[row] = h
		}
	}

	total := 0
	for _, h := range rowHeights {
		total += h
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, cols*tileW, total))

	y := 0
	for row, h := range rowHeights {
		for col := 0; col < cols && row*cols+col < len(tiles); col++ {
			tile := tiles[row*cols+col]
			x := col * tileW
			r := image.Rect(x, y, x+tileW, y+tile.Bounds().Dy())
			draw.Draw(canvas, r, tile, tile.Bounds().Min, draw.Src)
		}
		y += h
	}
	return canvas, nil
}

func loadTile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()
	tile, err := render.LoadImage(f)
	if err != nil {
		return nil, fmt.Errorf("could not load %q: %w", path, err)
	}
	return tile, nil
}

// scale resizes img to the given height keeping the aspect ratio.
func scale(img image.Image, height int) *image.NRGBA {
	b := img.Bounds()
	width := max(1, b.Dx()*height/max(1, b.Dy()))
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
