// Package render synthesizes the lensed sky: every pixel of an
// equirectangular frame is bent through the angle table and sampled from
// the sky of the world its ray ends up in.
package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/colors"
)

// Sky is an equirectangular background.
type Sky interface {
	Sample(theta, phi float64) colors.Color4
}

// Universe is the background of one world.
type Universe struct {
	Sky Sky
	// Offset is added to the longitude sampled from Sky.
	Offset float64
}

// Options configure RenderScene.
type Options struct {
	Camera Camera
	// Horizon is the colour of captured pixels. The zero value leaves them
	// transparent.
	Horizon colors.Color4
	// Workers bounds the number of rows rendered at once; 0 means NumCPU.
	Workers int
	// Band selects rows [Band*H/Bands, (Band+1)*H/Bands) of the frame.
	// Bands <= 1 renders the whole frame.
	Band, Bands int
	Logger      *slog.Logger
}

// Rows returns the half-open row range rendered by opts.
func (o Options) Rows() (int, int) {
	h := o.Camera.Height
	if o.Bands <= 1 {
		return 0, h
	}
	return o.Band * h / o.Bands, (o.Band + 1) * h / o.Bands
}

func (o Options) validate() error {
	if o.Camera.Height <= 0 {
		return fmt.Errorf("invalid height %d", o.Camera.Height)
	}
	if o.Bands > 1 && (o.Band < 0 || o.Band >= o.Bands) {
		return fmt.Errorf("band %d out of range [0, %d)", o.Band, o.Bands)
	}
	return nil
}

type scene struct {
	table     angles.Table
	universes map[int]Universe
	opts      Options
}

// RenderPixel returns the colour of pixel (x, y) of the full frame.
func (s *scene) RenderPixel(x, y int) colors.Color4 {
	cam := s.opts.Camera
	view := cam.ComputeRay(x, y)
	incidence := cam.Incidence(view)

	res := s.table.Lookup(incidence)
	if res.Collided {
		return s.opts.Horizon
	}
	u, ok := s.universes[res.World]
	if !ok {
		return colors.Black()
	}

	dir := cam.Deflect(view, res.Escape-incidence)
	theta, phi := dir.Spherical()
	return u.Sky.Sample(theta, phi+u.Offset)
}

// progress logs every 10% of completed rows.
type progress struct {
	mu        sync.Mutex
	log       *slog.Logger
	done, all int
	milestone int
}

func (p *progress) row() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	for p.done*100/p.all >= p.milestone {
		p.log.Info("render", "progress", p.milestone)
		p.milestone += 10
	}
}

// RenderScene renders the frame, or one band of it, through table.
// Worlds missing from universes stay black. The returned image is
// 2*Height wide and as tall as the selected band.
func RenderScene(ctx context.Context, table angles.Table, universes map[int]Universe, opts Options) (*image.NRGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &scene{table: table, universes: universes, opts: opts}
	y0, y1 := opts.Rows()
	W := 2 * opts.Camera.Height
	img := image.NewNRGBA(image.Rect(0, 0, W, y1-y0))
	p := &progress{log: log, all: max(1, y1-y0)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := y0; y < y1; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < W; x++ {
				img.SetNRGBA(x, y-y0, s.RenderPixel(x, y).ToNRGBA())
			}
			p.row()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}
