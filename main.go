package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/config"
	"github.com/echoflaresat/blackhole/geodesic"
	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/render"
	"github.com/echoflaresat/blackhole/texture"
)

type flags struct {
	config   *string
	out      *string
	height   *int
	workers  *int
	angles   *string
	dump     *string
	band     *int
	bands    *int
	verbose  *bool
	showHelp *bool
}

func defineFlags() flags {
	return flags{
		config: flag.String("config", "scene.json", "Scene configuration (JSON)"),

		out:     flag.String("out", "", "Output image (.png, .jpg, .tif); overrides the config"),
		height:  flag.Int("height", 0, "Output height in pixels, width is twice that; overrides the config"),
		workers: flag.Int("workers", 0, "Parallel workers (0 = all CPUs); overrides the config"),

		angles: flag.String("angles", "", "Render from an existing angles.csv instead of tracing rays"),
		dump:   flag.String("dump", "", "Directory to write input.csv, output.csv and angles.csv to"),

		band:  flag.Int("band", 0, "Index of the horizontal band to render"),
		bands: flag.Int("bands", 1, "Split the frame into this many horizontal bands"),

		verbose:  flag.Bool("v", false, "Verbose logging"),
		showHelp: flag.Bool("h", false, "Show this help message"),
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Black Hole Renderer - lensed sky generator

Usage:
  %[1]s [options]

`, os.Args[0])

	printGroup("Scene", []string{"config", "angles", "dump"})
	printGroup("Rendering Options", []string{"height", "workers", "band", "bands"})
	printGroup("Output", []string{"out"})
	printGroup("Misc", []string{"v", "h"})
}

func printGroup(title string, keys []string) {
	fmt.Fprintf(os.Stderr, "%s:\n", title)
	for _, name := range keys {
		if f := flag.Lookup(name); f != nil {
			fmt.Fprintf(os.Stderr, "  -%-8s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(os.Stderr)
}

func main() {
	f := defineFlags()
	flag.Usage = printHelp
	flag.Parse()

	if *f.showHelp {
		printHelp()
		return
	}
	if *f.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load(*f.config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *f.out != "" {
		cfg.Output.Path = *f.out
	}
	if *f.height > 0 {
		cfg.Output.Height = *f.height
	}
	if *f.workers > 0 {
		cfg.Workers = *f.workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	j := job{
		cfg:    cfg,
		angles: *f.angles,
		dump:   *f.dump,
		band:   *f.band,
		bands:  *f.bands,
		log:    slog.Default(),
	}
	if err := j.run(ctx); err != nil {
		log.Fatal(err)
	}
}

// job is one invocation of the renderer.
type job struct {
	cfg         *config.Config
	angles      string
	dump        string
	band, bands int
	log         *slog.Logger
}

func (j job) run(ctx context.Context) error {
	samples, err := j.samples(ctx)
	if err != nil {
		return err
	}
	table, err := angles.Build(angles.Uniform(samples))
	if err != nil {
		return fmt.Errorf("angle table: %w", err)
	}
	j.log.Info("angle table", "samples", len(samples), "blocks", len(table))

	universes, closeAll, err := j.universes()
	if err != nil {
		return err
	}
	defer closeAll()

	cfg := j.cfg
	img, err := render.RenderScene(ctx, table, universes, render.Options{
		Camera:  render.NewCamera(cfg.Output.Height, cfg.View.Base(), cfg.View.Axis()),
		Horizon: cfg.HorizonColor(),
		Workers: cfg.Workers,
		Band:    j.band,
		Bands:   j.bands,
		Logger:  j.log,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	j.log.Info("writing image", "path", cfg.Output.Path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	if err := render.Save(cfg.Output.Path, img); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// samples reads the angle table source or traces it.
func (j job) samples(ctx context.Context) ([]angles.Sample, error) {
	if j.angles != "" {
		f, err := os.Open(j.angles)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		samples, err := rays.ReadSamples(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", j.angles, err)
		}
		return samples, nil
	}

	scene := j.cfg.Scene
	space, err := scene.Space()
	if err != nil {
		return nil, err
	}
	fan, err := scene.Fan(space)
	if err != nil {
		return nil, err
	}
	j.log.Info("tracing rays", "metric", space.Kind(), "rays", len(fan), "integrator", j.cfg.Integrator.Kind)

	trace, err := geodesic.Run(ctx, j.cfg.NewIntegrator(j.log), space, fan, scene.Params())
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	if j.dump != "" {
		if err := trace.Dump(j.dump); err != nil {
			return nil, fmt.Errorf("dump: %w", err)
		}
	}
	return trace.Samples, nil
}

// universes loads one sky per configured world.
func (j job) universes() (map[int]render.Universe, func(), error) {
	var opened []*texture.Texture
	closeAll := func() {
		for _, t := range opened {
			t.Close()
		}
	}

	out := make(map[int]render.Universe, len(j.cfg.Worlds))
	for _, w := range j.cfg.Worlds {
		sky, err := texture.Load(w.Image)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("world %d: %w", w.ID, err)
		}
		opened = append(opened, sky)
		j.log.Debug("loaded sky", "world", w.ID, "path", w.Image, "width", sky.Width, "height", sky.Height)
		out[w.ID] = render.Universe{Sky: sky, Offset: w.Offset()}
	}
	return out, closeAll, nil
}
