package datagen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ssmgen/internal/canon"
	"github.com/roach88/ssmgen/internal/model"
	"github.com/roach88/ssmgen/internal/simulator"
)

// ErrNoSink is returned when saving is requested without a Sink.
var ErrNoSink = errors.New("datagen: save requested but no sink configured")

// Generator produces training data for every model in a Config.
type Generator struct {
	cfg  *Config
	reg  *model.Registry
	sink Sink
	ids  IDGenerator
}

// Option configures a Generator.
type Option func(*Generator)

// WithSink sets where rounds are persisted when saving.
func WithSink(s Sink) Option {
	return func(g *Generator) { g.sink = s }
}

// WithIDGenerator overrides the UUIDv7 run id generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(g *Generator) { g.ids = ids }
}

// New validates cfg against reg and returns a Generator.
func New(cfg *Config, reg *model.Registry, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, name := range cfg.Models {
		if _, ok := reg.Lookup(name); !ok {
			return nil, &ConfigError{Field: "models", Message: fmt.Sprintf("unknown model %q", name)}
		}
	}
	g := &Generator{cfg: cfg, reg: reg, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dataset is the outcome of a generation run.
type Dataset struct {
	Models map[string]*ModelData `json:"models"`
}

// ModelData is the outcome for a single model. Records and Rejected are
// only populated when the run was not saved.
type ModelData struct {
	RunID        string          `json:"run_id"`
	ConfigHash   string          `json:"config_hash"`
	FeatureNames []string        `json:"feature_names"`
	Records      map[int]*Record `json:"records,omitempty"`
	Rejected     []Rejected      `json:"rejected,omitempty"`

	Accepted      int   `json:"accepted"`
	RejectedCount int   `json:"rejected_count"`
	Dropped       int   `json:"dropped"`
	Resumed       bool  `json:"resumed"`
	SkippedRounds []int `json:"skipped_rounds,omitempty"`
}

// Workers returns the effective worker count.
func (g *Generator) Workers() int {
	if g.cfg.NCPUs == 0 {
		return runtime.NumCPU()
	}
	return int(g.cfg.NCPUs)
}

// GenerateDataUniform draws n_parameter_sets parameter sets uniformly within
// each model's bounds and labels their simulations. With save, every round
// is written to the configured Sink and the returned ModelData carries only
// counts.
func (g *Generator) GenerateDataUniform(ctx context.Context, save bool) (*Dataset, error) {
	if save && g.sink == nil {
		return nil, ErrNoSink
	}
	workers := g.Workers()
	slog.Info("n_cpus used", "n_cpus", workers)

	ds := &Dataset{Models: make(map[string]*ModelData, len(g.cfg.Models))}
	for _, name := range g.cfg.Models {
		md, err := g.generateModel(ctx, name, workers, save)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		ds.Models[name] = md
	}
	return ds, nil
}

func (g *Generator) generateModel(ctx context.Context, name string, workers int, save bool) (*ModelData, error) {
	m, _ := g.reg.Lookup(name)
	hash, err := g.cfg.Hash(m)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}
	md := &ModelData{
		ConfigHash:   hash,
		FeatureNames: FeatureNames(g.cfg, m),
	}
	if !save {
		md.Records = make(map[int]*Record)
	}

	var completed []int
	if save {
		if r, ok := g.sink.(Resumer); ok {
			runID, done, found, err := r.FindRun(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("find run: %w", err)
			}
			if found {
				md.RunID, md.Resumed, completed = runID, true, done
				slog.Info("resuming run", "model", name, "run_id", runID, "completed_rounds", len(done))
			}
		}
	}
	if md.RunID == "" {
		md.RunID = g.ids.Generate()
	}
	spans := RoundSpans(g.cfg.NParameterSets, g.cfg.NSubruns)
	if save && !md.Resumed {
		err := g.sink.WriteRun(ctx, RunInfo{
			RunID:        md.RunID,
			Model:        name,
			ConfigHash:   hash,
			Config:       g.cfg,
			ModelConfig:  m,
			FeatureNames: md.FeatureNames,
			NRounds:      len(spans),
		})
		if err != nil {
			return nil, fmt.Errorf("write run: %w", err)
		}
	}

	budget := g.cfg.NParameterSetsRejected
	f := features{cfg: g.cfg, m: m}
	for round, span := range spans {
		if slices.Contains(completed, round) {
			md.SkippedRounds = append(md.SkippedRounds, round)
			continue
		}
		slog.Info("simulation round", "model", name, "round", round+1, "of", len(spans))

		outcomes, err := g.runRound(ctx, f, md.RunID, span, workers)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		r := Round{RunID: md.RunID, Model: name, Index: round, FeatureNames: md.FeatureNames}
		for _, out := range outcomes {
			if out.record != nil {
				out.record.Round = round
				r.Records = append(r.Records, out.record)
			} else {
				md.Dropped++
			}
			for _, rej := range out.rejected {
				if budget <= 0 {
					break
				}
				r.Rejected = append(r.Rejected, rej)
				budget--
			}
		}
		md.Accepted += len(r.Records)
		md.RejectedCount += len(r.Rejected)
		slog.Debug("round complete", "model", name, "round", round,
			"accepted", len(r.Records), "rejected", len(r.Rejected))

		if save {
			if err := g.sink.WriteRound(ctx, r); err != nil {
				return nil, fmt.Errorf("write round %d: %w", round, err)
			}
			continue
		}
		for _, rec := range r.Records {
			md.Records[rec.Index] = rec
		}
		md.Rejected = append(md.Rejected, r.Rejected...)
	}
	if md.Dropped > 0 {
		slog.Warn("parameter sets dropped after max_attempts", "model", name, "dropped", md.Dropped)
	}
	return md, nil
}

// Span is a half-open range of parameter-set indices.
type Span struct {
	Start, End int
}

// RoundSpans splits n parameter sets into exactly k contiguous rounds whose
// sizes differ by at most one. Requires 1 <= k <= n.
func RoundSpans(n, k int) []Span {
	spans := make([]Span, k)
	for i := range spans {
		spans[i] = Span{Start: i * n / k, End: (i + 1) * n / k}
	}
	return spans
}

type outcome struct {
	record   *Record
	rejected []Rejected
}

func (g *Generator) runRound(ctx context.Context, f features, runID string, span Span, workers int) ([]outcome, error) {
	outcomes := make([]outcome, span.End-span.Start)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := range outcomes {
		idx := span.Start + i
		grp.Go(func() error {
			out, err := g.simulateSet(gctx, f, runID, idx)
			if err != nil {
				return fmt.Errorf("parameter set %d: %w", idx, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// simulateSet draws theta for parameter set idx until its simulation passes
// the filters or max_attempts is reached.
func (g *Generator) simulateSet(ctx context.Context, f features, runID string, idx int) (outcome, error) {
	rng := rand.New(rand.NewPCG(g.cfg.Seed, uint64(idx)))
	opts := simulator.Options{
		DeltaT: g.cfg.DeltaT,
		MaxT:   g.cfg.MaxT,
		Seed:   g.cfg.Seed,
		Stream: uint64(idx),
		Rand:   rng,
	}

	var out outcome
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		theta := f.m.UniformSample(rng)
		res, err := simulator.SimulateConfig(ctx, f.m, theta, g.cfg.NSamples, opts)
		if err != nil {
			return outcome{}, err
		}
		stats := Stats(res)
		if !g.cfg.SimulationFilters.Keep(stats) {
			out.rejected = append(out.rejected, Rejected{Index: idx, Attempt: attempt, Theta: theta, Stats: stats})
			continue
		}

		rec := f.label(rng, theta, res)
		rec.Index = idx
		rec.Attempts = attempt
		rec.Stats = stats
		rec.ID, err = canon.ParamSetID(runID, idx, theta)
		if err != nil {
			return outcome{}, err
		}
		out.record = rec
		return out, nil
	}
	return out, nil
}
