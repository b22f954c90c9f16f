package geodesic

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/spacetime"
)

// Trace is the outcome of integrating one ray fan.
type Trace struct {
	Fan     []rays.Ray
	Finals  []rays.Final
	Samples []angles.Sample
}

// Run integrates fan with in and reads the results back as angle samples.
func Run(ctx context.Context, in Integrator, space spacetime.Space, fan []rays.Ray, p Params) (*Trace, error) {
	if len(fan) == 0 {
		return nil, fmt.Errorf("no rays to trace")
	}
	finals, err := in.Integrate(ctx, space, fan, p)
	if err != nil {
		return nil, err
	}
	samples, err := rays.Angles(space, fan, finals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrator, err)
	}
	return &Trace{Fan: fan, Finals: finals, Samples: samples}, nil
}

// Dump writes input.csv, output.csv and angles.csv into dir.
func (t *Trace) Dump(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"input.csv", func(w io.Writer) error { return rays.WriteRays(w, t.Fan) }},
		{"output.csv", func(w io.Writer) error { return rays.WriteFinals(w, t.Finals) }},
		{"angles.csv", func(w io.Writer) error { return rays.WriteSamples(w, t.Samples) }},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, func(out *os.File) error { return f.write(out) }); err != nil {
			return err
		}
	}
	return nil
}
