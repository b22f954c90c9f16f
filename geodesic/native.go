package geodesic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/spacetime"
	"github.com/echoflaresat/blackhole/vectors"
)

// blockSize is the number of rays traced together by one worker.
const blockSize = 256

// derivStep is the finite difference step for metric derivatives.
const derivStep = 1e-6

// Native integrates the geodesic equation with a fixed-step RK4 scheme.
// Christoffel symbols come from central differences of Space.Metric, so any
// diagonal metric works without a hand-written force law.
type Native struct {
	// Workers bounds the number of blocks traced at once; 0 means NumCPU.
	Workers int
	Logger  *slog.Logger
}

type tracer struct {
	space    spacetime.Space
	jac      *mat.Dense
	settings *fd.JacobianSettings
}

func newTracer(space spacetime.Space) *tracer {
	return &tracer{
		space:    space,
		jac:      mat.NewDense(4, 4, nil),
		settings: &fd.JacobianSettings{Formula: fd.Central, Step: derivStep},
	}
}

// diagonal writes the metric diagonal at x into y.
func (tr *tracer) diagonal(y, x []float64) {
	g := tr.space.Metric(vectors.Vec4(x))
	for i := range y {
		y[i] = g.At(i, i)
	}
}

// acceleration evaluates -Γ^μ_αβ v^α v^β for a diagonal metric.
func (tr *tracer) acceleration(x, v vectors.Vec4) vectors.Vec4 {
	g := tr.space.Metric(x)
	fd.Jacobian(tr.jac, tr.diagonal, x[:], tr.settings)

	var a vectors.Vec4
	for mu := 0; mu < 4; mu++ {
		var along, across float64
		for al := 0; al < 4; al++ {
			along += tr.jac.At(mu, al) * v[al]
			across += tr.jac.At(al, mu) * v[al] * v[al]
		}
		a[mu] = -(2*v[mu]*along - across) / (2 * g.At(mu, mu))
	}
	return a
}

// step advances (x, v) by h.
func (tr *tracer) step(x, v vectors.Vec4, h float64) (vectors.Vec4, vectors.Vec4) {
	k1x, k1v := v, tr.acceleration(x, v)
	k2x, k2v := v.Add(k1v.Scale(h/2)), tr.acceleration(x.Add(k1x.Scale(h/2)), v.Add(k1v.Scale(h/2)))
	k3x, k3v := v.Add(k2v.Scale(h/2)), tr.acceleration(x.Add(k2x.Scale(h/2)), v.Add(k2v.Scale(h/2)))
	k4x, k4v := v.Add(k3v.Scale(h)), tr.acceleration(x.Add(k3x.Scale(h)), v.Add(k3v.Scale(h)))

	x = x.Add(k1x.Add(k2x.Scale(2)).Add(k3x.Scale(2)).Add(k4x).Scale(h / 6))
	v = v.Add(k1v.Add(k2v.Scale(2)).Add(k3v.Scale(2)).Add(k4v).Scale(h / 6))
	return x, v
}

// trace integrates one block of rays in lockstep. The block stops early once
// every ray has been captured.
func (tr *tracer) trace(ctx context.Context, block []rays.Final, p Params) error {
	total := int(math.Ceil(p.Length / p.Step))
	chunk := max(1, p.Snapshots)

	for done := 0; done < total; done += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		steps := min(chunk, total-done)
		alive := false
		for i := range block {
			f := &block[i]
			for k := 0; k < steps && !f.Collided; k++ {
				if tr.captured(f) {
					f.Collided = true
					break
				}
				f.Pos, f.Dir = tr.step(f.Pos, f.Dir, p.Step)
			}
			alive = alive || !f.Collided
		}
		if !alive {
			break
		}
	}
	for i := range block {
		if f := &block[i]; !f.Collided && tr.captured(f) {
			f.Collided = true
		}
	}
	return nil
}

// captured reports whether a ray has crossed the capture threshold or left
// the representable range.
func (tr *tracer) captured(f *rays.Final) bool {
	return tr.space.CheckCollision(f.Pos) || !f.Pos.IsFinite() || !f.Dir.IsFinite()
}

func (n Native) Integrate(ctx context.Context, space spacetime.Space, fan []rays.Ray, p Params) ([]rays.Final, error) {
	if !(p.Step > 0) || !(p.Length >= 0) {
		return nil, fmt.Errorf("%w: invalid step %v or length %v", ErrIntegrator, p.Step, p.Length)
	}
	log := loggerOrDefault(n.Logger)

	finals := make([]rays.Final, len(fan))
	for i, r := range fan {
		finals[i] = rays.Final{Pos: r.Pos, Dir: r.Dir}
	}

	workers := n.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	blocks := (len(fan) + blockSize - 1) / blockSize

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var finished atomic.Int64
	for b := 0; b < blocks; b++ {
		block := finals[b*blockSize : min(len(finals), (b+1)*blockSize)]
		g.Go(func() error {
			if err := newTracer(space).trace(ctx, block, p); err != nil {
				return err
			}
			log.Info("integrated block", "done", finished.Add(1), "blocks", blocks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return finals, nil
}
