package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/roach88/ssmgen/internal/boundary"
	"github.com/roach88/ssmgen/internal/model"
)

// Default integration settings.
const (
	DefaultDeltaT = 0.001
	DefaultMaxT   = 20.0
	DefaultS      = 1.0
)

// Options controls a simulation batch.
type Options struct {
	// DeltaT is the Euler-Maruyama step size in seconds.
	DeltaT float64

	// MaxT is the horizon; samples not decided by MaxT are omissions.
	MaxT float64

	// S is the diffusion noise standard deviation.
	S float64

	// Seed and Stream seed a PCG generator.
	Seed   uint64
	Stream uint64

	// Rand overrides Seed/Stream when set. Not safe to share across
	// concurrent calls.
	Rand *rand.Rand

	// StrictBounds rejects theta outside the model's sampling bounds.
	StrictBounds bool

	// ReturnTrajectory records the first sample's evidence path and the
	// boundary grid in Metadata.
	ReturnTrajectory bool
}

// DefaultOptions returns options with the default grid and noise.
func DefaultOptions() Options {
	return Options{
		DeltaT: DefaultDeltaT,
		MaxT:   DefaultMaxT,
		S:      DefaultS,
	}
}

func (o *Options) applyDefaults() {
	if o.DeltaT == 0 {
		o.DeltaT = DefaultDeltaT
	}
	if o.MaxT == 0 {
		o.MaxT = DefaultMaxT
	}
	if o.S == 0 {
		o.S = DefaultS
	}
}

// Simulate looks up name in reg and runs nSamples trials at theta.
func Simulate(ctx context.Context, reg *model.Registry, name string, theta []float64, nSamples int, opts Options) (*Result, error) {
	cfg, ok := reg.Lookup(name)
	if !ok {
		return nil, newError(ErrCodeUnknownModel, name, "model is not registered")
	}
	return SimulateConfig(ctx, cfg, theta, nSamples, opts)
}

// SimulateConfig runs nSamples trials of cfg at theta.
//
// The context is checked between trials; on cancellation the partial batch
// is discarded and ctx.Err() returned.
func SimulateConfig(ctx context.Context, cfg *model.Config, theta []float64, nSamples int, opts Options) (*Result, error) {
	opts.applyDefaults()
	if err := checkOptions(cfg.Name, nSamples, opts); err != nil {
		return nil, err
	}
	if len(theta) != len(cfg.Params) {
		return nil, newError(ErrCodeBadTheta, cfg.Name, "theta has %d values, want %d %v", len(theta), len(cfg.Params), cfg.Params)
	}
	for i, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, newError(ErrCodeBadTheta, cfg.Name, "%s is not finite", cfg.Params[i])
		}
	}
	if opts.StrictBounds {
		if err := cfg.CheckBounds(theta); err != nil {
			return nil, newError(ErrCodeOutOfBounds, cfg.Name, "%v", err)
		}
	}

	shape, ok := boundary.Lookup(cfg.Boundary)
	if !ok {
		return nil, newError(ErrCodeUnknownModel, cfg.Name, "unknown boundary %q", cfg.Boundary)
	}

	p := params(cfg.ThetaMap(theta))
	bp := make([]float64, len(shape.Params))
	for i, name := range shape.Params {
		bp[i] = p[name]
	}
	g := &grid{
		dt:     opts.DeltaT,
		sqrtDt: math.Sqrt(opts.DeltaT),
		s:      opts.S,
		bound:  boundary.Grid(shape, p["a"], bp, opts.DeltaT, opts.MaxT),
	}

	trial, err := buildTrial(cfg, p, g)
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(opts.Seed, opts.Stream))
	}

	res := &Result{
		RTs:     make([]float64, nSamples),
		Choices: make([]int, nSamples),
		Metadata: Metadata{
			Model:           cfg.Name,
			Simulator:       cfg.Simulator,
			BoundaryFn:      cfg.Boundary,
			Theta:           cfg.ThetaMap(theta),
			DeltaT:          opts.DeltaT,
			MaxT:            opts.MaxT,
			S:               opts.S,
			NSamples:        nSamples,
			Seed:            opts.Seed,
			PossibleChoices: slices.Clone(cfg.Choices),
		},
	}

	rec := &recorder{on: opts.ReturnTrajectory}
	for i := 0; i < nSamples; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rt, choice, decided := trial(rng, rec)
		if !decided {
			rt = OmissionRT
		}
		res.RTs[i] = rt
		res.Choices[i] = choice
		if i == 0 && rec.on {
			res.Metadata.Trajectory = rec.rows
			res.Metadata.Boundary = slices.Clone(g.bound)
			rec.on = false
		}
	}

	return res, nil
}

func checkOptions(name string, nSamples int, opts Options) error {
	if nSamples <= 0 {
		return newError(ErrCodeBadOptions, name, "n_samples must be positive, got %d", nSamples)
	}
	if !(opts.DeltaT > 0) {
		return newError(ErrCodeBadOptions, name, "delta_t must be positive, got %g", opts.DeltaT)
	}
	if !(opts.MaxT > opts.DeltaT) {
		return newError(ErrCodeBadOptions, name, "max_t must exceed delta_t, got max_t=%g delta_t=%g", opts.MaxT, opts.DeltaT)
	}
	if !(opts.S > 0) {
		return newError(ErrCodeBadOptions, name, "s must be positive, got %g", opts.S)
	}
	return nil
}
