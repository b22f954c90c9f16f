package geodesic

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/spacetime"
)

// Exec runs an external integrator binary invoked as
//
//	binary input.csv output.csv metric.cl args.csv length step snapshots
//
// and exchanges rays with it through temporary CSV files.
type Exec struct {
	Binary string
	// Source is the metric force law handed to the binary. When empty,
	// "<metric>.cl" next to the binary is used.
	Source string
	// TempDir holds the exchange files; empty means os.TempDir.
	TempDir string
	Logger  *slog.Logger
}

func (e Exec) source(kind spacetime.Kind) string {
	if e.Source != "" {
		return e.Source
	}
	return filepath.Join(filepath.Dir(e.Binary), kind.String()+".cl")
}

func (e Exec) Integrate(ctx context.Context, space spacetime.Space, fan []rays.Ray, p Params) ([]rays.Final, error) {
	log := loggerOrDefault(e.Logger)

	dir, err := os.MkdirTemp(e.TempDir, "geodesic-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")
	args := filepath.Join(dir, "args.csv")

	if err := writeFile(input, func(f *os.File) error { return rays.WriteRays(f, fan) }); err != nil {
		return nil, err
	}
	if err := writeFile(args, func(f *os.File) error { return rays.WriteArgs(f, p.Args) }); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.Binary,
		input,
		output,
		e.source(space.Kind()),
		args,
		strconv.FormatFloat(p.Length, 'f', -1, 64),
		strconv.FormatFloat(p.Step, 'f', -1, 64),
		strconv.Itoa(p.Snapshots),
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Info("running integrator", "command", cmd.String(), "rays", len(fan))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrIntegrator, err, bytes.TrimSpace(out.Bytes()))
	}

	f, err := os.Open(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrator, err)
	}
	defer f.Close()

	finals, err := rays.ReadFinals(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIntegrator, output, err)
	}
	if len(finals) != len(fan) {
		return nil, fmt.Errorf("%w: %d rays in, %d out", ErrIntegrator, len(fan), len(finals))
	}
	return finals, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
