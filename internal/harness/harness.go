package harness

import (
	"context"
	"fmt"

	"github.com/roach88/ssmgen/internal/model"
	"github.com/roach88/ssmgen/internal/simulator"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates overall success: true if every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors"`

	// Summary aggregates the simulated data.
	Summary simulator.Summary `json:"summary"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{Name: name, Pass: true, Errors: []string{}}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run simulates the scenario against reg and evaluates its assertions.
//
// Errors are returned for scenarios that cannot run (unknown model, bad
// theta). Failed assertions are reported in Result, not as an error.
func Run(ctx context.Context, reg *model.Registry, s *Scenario) (*Result, error) {
	cfg, ok := reg.Lookup(s.Model)
	if !ok {
		return nil, fmt.Errorf("scenario %s: unknown model %q", s.Name, s.Model)
	}
	theta, err := cfg.ThetaFromMap(s.Theta)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	res, err := simulator.SimulateConfig(ctx, cfg, theta, s.NSamples, simulator.Options{
		DeltaT: s.DeltaT,
		MaxT:   s.MaxT,
		Seed:   s.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult(s.Name)
	result.Summary = res.Summary()
	for i, a := range s.Assertions {
		got, err := observe(res, result.Summary, a)
		if err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
			continue
		}
		if err := check(a, got); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// RunAll runs scenarios in order and stops at the first one that cannot
// run.
func RunAll(ctx context.Context, reg *model.Registry, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := Run(ctx, reg, s)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}
