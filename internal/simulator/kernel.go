package simulator

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/roach88/ssmgen/internal/model"
)

// trialFunc runs one trial and returns the response time, the choice, and
// whether a boundary was reached before the end of the grid.
type trialFunc func(rng *rand.Rand, rec *recorder) (rt float64, choice int, ok bool)

// grid carries the discretized time axis shared by all trials of a batch.
type grid struct {
	dt     float64
	sqrtDt float64
	s      float64
	bound  []float64
}

func (g *grid) last() int { return len(g.bound) - 1 }

// recorder captures the evidence path of one trial when enabled.
type recorder struct {
	on   bool
	rows [][]float64
}

func (r *recorder) add(x ...float64) {
	if r == nil || !r.on {
		return
	}
	row := make([]float64, len(x))
	copy(row, x)
	r.rows = append(r.rows, row)
}

// diffuse integrates dy = (v - g*y)dt + s*dW from y0 until |y| >= b(t) or
// the grid is exhausted.
func (g *grid) diffuse(rng *rand.Rand, rec *recorder, y0, v, leak float64) (float64, int, bool) {
	y := y0
	ix := 0
	rec.add(y)
	for y > -g.bound[ix] && y < g.bound[ix] {
		if ix >= g.last() {
			return float64(ix) * g.dt, twoChoice(y), false
		}
		y += (v-leak*y)*g.dt + g.s*g.sqrtDt*rng.NormFloat64()
		ix++
		rec.add(y)
	}
	return float64(ix) * g.dt, twoChoice(y), true
}

func twoChoice(y float64) int {
	if y >= 0 {
		return 1
	}
	return -1
}

// accumulate integrates n non-negative accumulators until one reaches b(t).
// inhibition couples each accumulator to the sum of the others (LCA);
// race models pass leak = inhibition = 0.
func (g *grid) accumulate(rng *rand.Rand, rec *recorder, x0, v []float64, leak, inhibition float64) (float64, int, bool) {
	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	next := make([]float64, n)

	ix := 0
	rec.add(x...)
	for {
		lead := argmax(x)
		if x[lead] >= g.bound[ix] {
			return float64(ix) * g.dt, lead, true
		}
		if ix >= g.last() {
			return float64(ix) * g.dt, lead, false
		}

		sum := 0.0
		for _, xi := range x {
			sum += xi
		}
		for i := range x {
			drift := v[i] - leak*x[i] - inhibition*(sum-x[i])
			next[i] = math.Max(0, x[i]+drift*g.dt+g.s*g.sqrtDt*rng.NormFloat64())
		}
		x, next = next, x
		ix++
		rec.add(x...)
	}
}

func argmax(x []float64) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

// params resolves named parameters from theta.
type params map[string]float64

func (p params) vec(prefix string, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p[prefix+strconv.Itoa(i)]
	}
	return out
}

// buildTrial prepares the per-trial function for a model and theta.
// Returned RTs include the non-decision time.
func buildTrial(cfg *model.Config, p params, g *grid) (trialFunc, error) {
	switch cfg.Simulator {
	case model.KernelDDM, model.KernelOrnstein:
		v, a, z := p["v"], p["a"], p["z"]
		leak := 0.0
		if cfg.Simulator == model.KernelOrnstein {
			leak = p["g"]
		}
		if err := checkDiffusion(cfg.Name, a, z); err != nil {
			return nil, err
		}
		t0 := p["t"]
		b0 := g.bound[0]
		y0 := -b0 + 2*z*b0
		return func(rng *rand.Rand, rec *recorder) (float64, int, bool) {
			rt, c, ok := g.diffuse(rng, rec, y0, v, leak)
			return rt + t0, c, ok
		}, nil

	case model.KernelFullDDM:
		v, a, z, t0 := p["v"], p["a"], p["z"], p["t"]
		sz, sv, st := p["sz"], p["sv"], p["st"]
		if err := checkDiffusion(cfg.Name, a, z); err != nil {
			return nil, err
		}
		if sz < 0 || sv < 0 || st < 0 {
			return nil, newError(ErrCodeBadTheta, cfg.Name, "sz, sv and st must be non-negative")
		}
		b0 := g.bound[0]
		return func(rng *rand.Rand, rec *recorder) (float64, int, bool) {
			zt := clamp(z+sz*(rng.Float64()-0.5), 1e-6, 1-1e-6)
			vt := v + sv*rng.NormFloat64()
			tt := math.Max(0, t0+st*(rng.Float64()-0.5))
			rt, c, ok := g.diffuse(rng, rec, -b0+2*zt*b0, vt, 0)
			return rt + tt, c, ok
		}, nil

	case model.KernelRace, model.KernelLCA:
		n := cfg.NChoices
		v := p.vec("v", n)
		z := p.vec("z", n)
		a, t0 := p["a"], p["t"]
		if a <= 0 {
			return nil, newError(ErrCodeBadTheta, cfg.Name, "a must be positive, got %g", a)
		}
		leak, inhibition := 0.0, 0.0
		if cfg.Simulator == model.KernelLCA {
			leak, inhibition = p["g"], p["b"]
		}
		x0 := make([]float64, n)
		for i, zi := range z {
			if zi < 0 || zi >= 1 {
				return nil, newError(ErrCodeBadTheta, cfg.Name, "z%d must lie in [0, 1), got %g", i, zi)
			}
			x0[i] = zi * g.bound[0]
		}
		return func(rng *rand.Rand, rec *recorder) (float64, int, bool) {
			rt, c, ok := g.accumulate(rng, rec, x0, v, leak, inhibition)
			return rt + t0, c, ok
		}, nil
	}

	return nil, newError(ErrCodeUnknownModel, cfg.Name, "no kernel %q", cfg.Simulator)
}

func checkDiffusion(name string, a, z float64) error {
	if a <= 0 {
		return newError(ErrCodeBadTheta, name, "a must be positive, got %g", a)
	}
	if z <= 0 || z >= 1 {
		return newError(ErrCodeBadTheta, name, "z must lie in (0, 1), got %g", z)
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}
