// Command trace integrates the ray fan of a scene and writes the
// input.csv, output.csv and angles.csv tables without rendering.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/echoflaresat/blackhole/config"
	"github.com/echoflaresat/blackhole/geodesic"
)

func main() {
	configPath := flag.String("config", "scene.json", "Scene configuration (JSON)")
	dir := flag.String("dump", ".", "Directory to write the tables to")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config scene.json] [-dump dir]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	space, err := cfg.Scene.Space()
	if err != nil {
		log.Fatal(err)
	}
	fan, err := cfg.Scene.Fan(space)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("tracing rays", "metric", space.Kind(), "rays", len(fan))
	trace, err := geodesic.Run(ctx, cfg.NewIntegrator(slog.Default()), space, fan, cfg.Scene.Params())
	if err != nil {
		log.Fatalf("Trace failed: %v", err)
	}

	collided := 0
	for _, s := range trace.Samples {
		if s.Collided {
			collided++
		}
	}
	if err := trace.Dump(*dir); err != nil {
		log.Fatalf("Failed to write tables: %v", err)
	}
	fmt.Printf("-> %d rays, %d captured, tables in %s\n", len(fan), collided, *dir)
}
