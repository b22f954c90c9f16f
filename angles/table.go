// Package angles turns sampled (incidence, escape) pairs produced by the
// integrator into a continuous, piecewise linear escape-angle function.
//
// Escape angles are only known modulo a full turn and rays that get
// captured break the function into separate runs. Each run becomes a
// Block; an ordered list of blocks is a Table.
package angles

import (
	"errors"
	"fmt"
	"math"
)

// trendLag is the distance between the two samples compared when voting
// on the direction of a block.
const trendLag = 10

const fullTurn = 2 * math.Pi

// ErrUnordered is returned by Build when incidence angles do not strictly
// increase.
var ErrUnordered = errors.New("angle samples are not in increasing incidence order")

// Sample is the outcome of one traced ray.
type Sample struct {
	Incidence float64
	Escape    float64
	Collided  bool
	World     int
}

// Block is a run of incidence angles, uninterrupted by capture, over
// which the escape angle is continuous. Escape holds samples equally
// spaced in incidence from Begin to End; Uniform brings other fans onto
// such a grid before Build.
type Block struct {
	Begin  float64
	End    float64
	World  int
	Escape []float64
}

// Contains reports whether angle falls inside [Begin, End].
func (b Block) Contains(angle float64) bool {
	return angle >= b.Begin && angle <= b.End
}

// At interpolates the escape angle at an incidence angle inside the block.
func (b Block) At(angle float64) float64 {
	last := len(b.Escape) - 1
	if b.End == b.Begin {
		return b.Escape[0]
	}
	pos := (angle - b.Begin) / (b.End - b.Begin) * float64(last)

	i1 := int(math.Floor(pos))
	i2 := int(math.Ceil(pos))
	if i2 > last {
		i2 = last
	}
	if i1 >= i2 {
		return b.Escape[i2]
	}
	return b.Escape[i1]*(float64(i2)-pos) + b.Escape[i2]*(pos-float64(i1))
}

// Table is an ordered list of blocks. Order matters: when ranges overlap
// the first block wins.
type Table []Block

// Result is the answer of a table lookup.
type Result struct {
	Escape   float64
	Collided bool
	World    int
}

// Lookup returns the escape angle and destination world for an incidence
// angle. Blocks are scanned in table order and the first block whose range
// contains the angle is used. Angles covered by no block come back as
// collided in world 0.
func (t Table) Lookup(incidence float64) Result {
	for _, b := range t {
		if !b.Contains(incidence) {
			continue
		}
		return Result{Escape: b.At(incidence), World: b.World}
	}
	return Result{Collided: true}
}

// Build folds samples, ordered by strictly increasing incidence angle, into
// a table. A block ends at every collided sample; its world is taken from
// the sample right after its last member, or from its last member when the
// data ends. Blocks shorter than two samples are dropped. Samples with a
// non-finite escape angle count as collided.
func Build(samples []Sample) (Table, error) {
	for i := 1; i < len(samples); i++ {
		if !(samples[i].Incidence > samples[i-1].Incidence) {
			return nil, fmt.Errorf("%w: sample %d (%v) after %v",
				ErrUnordered, i, samples[i].Incidence, samples[i-1].Incidence)
		}
	}

	var table Table
	start := -1
	finish := func(end, world int) {
		if start >= 0 && end-start >= 2 {
			escape := make([]float64, 0, end-start)
			for _, s := range samples[start:end] {
				escape = append(escape, s.Escape)
			}
			table = append(table, Block{
				Begin:  samples[start].Incidence,
				End:    samples[end-1].Incidence,
				World:  world,
				Escape: NormalizeBlock(escape),
			})
		}
		start = -1
	}

	for i, s := range samples {
		if !usable(s) {
			finish(i, s.World)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if n := len(samples); n > 0 {
		finish(n, samples[n-1].World)
	}
	return table, nil
}

// Uniform returns samples on an equally spaced incidence grid with the same
// count and end points. Input that is already equally spaced, or not
// strictly increasing, is returned as is. Escape angles are interpolated
// along the shorter arc between neighbours; a grid point between two
// samples of which one is collided is collided, in the world of the upper
// neighbour.
func Uniform(samples []Sample) []Sample {
	n := len(samples)
	if n < 3 || !increasing(samples) || equallySpaced(samples) {
		return samples
	}
	first, last := samples[0].Incidence, samples[n-1].Incidence

	out := make([]Sample, n)
	j := 0
	for i := range out {
		x := first + (last-first)*float64(i)/float64(n-1)
		if i == n-1 {
			x = last
		}
		for j < n-2 && samples[j+1].Incidence < x {
			j++
		}
		a, b := samples[j], samples[j+1]
		frac := (x - a.Incidence) / (b.Incidence - a.Incidence)

		var s Sample
		switch {
		case frac <= 0:
			s = a
		case frac >= 1:
			s = b
		case !usable(a) || !usable(b):
			s = Sample{Collided: true, World: b.World}
		default:
			delta := math.Remainder(b.Escape-a.Escape, fullTurn)
			s = Sample{
				Escape: math.Remainder(a.Escape+frac*delta, fullTurn),
				World:  b.World,
			}
		}
		s.Incidence = x
		out[i] = s
	}
	return out
}

func usable(s Sample) bool {
	return !s.Collided && !math.IsNaN(s.Escape) && !math.IsInf(s.Escape, 0)
}

func increasing(samples []Sample) bool {
	for i := 1; i < len(samples); i++ {
		if !(samples[i].Incidence > samples[i-1].Incidence) {
			return false
		}
	}
	return true
}

func equallySpaced(samples []Sample) bool {
	n := len(samples)
	step := (samples[n-1].Incidence - samples[0].Incidence) / float64(n-1)
	tol := 1e-9 * math.Abs(step)
	for i := 1; i < n; i++ {
		if math.Abs(samples[i].Incidence-samples[i-1].Incidence-step) > tol {
			return false
		}
	}
	return true
}

// NormalizeBlock unwraps escape angles into a monotonic sequence. The
// direction is decided by a majority vote over pairs trendLag apart (ties
// go upward); then every element is moved by whole turns until it does not
// break the trend set by its predecessor. The input is not modified.
func NormalizeBlock(escape []float64) []float64 {
	out := make([]float64, len(escape))
	copy(out, escape)

	rises, falls := 0, 0
	for i := trendLag; i < len(out); i++ {
		switch {
		case out[i] > out[i-trendLag]:
			rises++
		case out[i] < out[i-trendLag]:
			falls++
		}
	}

	if falls > rises {
		for i := 1; i < len(out); i++ {
			for out[i] > out[i-1] {
				out[i] -= fullTurn
			}
		}
		return out
	}
	for i := 1; i < len(out); i++ {
		for out[i] < out[i-1] {
			out[i] += fullTurn
		}
	}
	return out
}
