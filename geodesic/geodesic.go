// Package geodesic traces the ray fan through curved spacetime, either by
// handing it to an external integrator process or by integrating the
// geodesic equation in process.
package geodesic

import (
	"context"
	"errors"
	"log/slog"

	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/spacetime"
)

// ErrIntegrator marks failures of the integrator itself. They abort the run.
var ErrIntegrator = errors.New("integrator failed")

// Params are the per-run integration settings.
type Params struct {
	// Length is the affine length each ray is integrated over.
	Length float64
	// Step is the integration step.
	Step float64
	// Snapshots is the number of steps between progress checks.
	Snapshots int
	// Args are metric arguments passed to the force law, e.g. the horizon
	// radius.
	Args []float64
}

// Integrator traces rays given in the native chart of space and returns one
// final state per ray, in order.
type Integrator interface {
	Integrate(ctx context.Context, space spacetime.Space, fan []rays.Ray, p Params) ([]rays.Final, error)
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
