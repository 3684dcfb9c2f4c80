package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/ssmgen/internal/boundary"
)

// Validate checks structural consistency of the config and returns every
// problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("model %s: "+format, append([]any{c.Name}, args...)...))
	}

	if c.Name == "" {
		errs = append(errs, errors.New("model: name is required"))
	}

	n := len(c.Params)
	if n == 0 {
		add("params must not be empty")
	}
	if c.NParams != n {
		add("n_params=%d but %d params listed", c.NParams, n)
	}
	if len(c.ParamBoundsLow) != n || len(c.ParamBoundsHigh) != n {
		add("param bounds must have %d entries (low=%d, high=%d)", n, len(c.ParamBoundsLow), len(c.ParamBoundsHigh))
	} else {
		for i := range c.Params {
			if !(c.ParamBoundsLow[i] < c.ParamBoundsHigh[i]) {
				add("bounds for %s must satisfy low < high (got [%g, %g])", c.Params[i], c.ParamBoundsLow[i], c.ParamBoundsHigh[i])
			}
		}
	}
	if len(c.DefaultParams) != n {
		add("default_params must have %d entries, got %d", n, len(c.DefaultParams))
	} else if len(c.ParamBoundsLow) == n && len(c.ParamBoundsHigh) == n {
		for i, v := range c.DefaultParams {
			if v < c.ParamBoundsLow[i] || v > c.ParamBoundsHigh[i] {
				add("default %s=%g outside bounds [%g, %g]", c.Params[i], v, c.ParamBoundsLow[i], c.ParamBoundsHigh[i])
			}
		}
	}

	seen := make(map[string]bool, n)
	for _, p := range c.Params {
		if seen[p] {
			add("duplicate parameter %q", p)
		}
		seen[p] = true
	}

	if c.NChoices < 2 {
		add("nchoices must be >= 2, got %d", c.NChoices)
	}
	if len(c.Choices) != c.NChoices {
		add("choices must have %d entries, got %d", c.NChoices, len(c.Choices))
	}

	required, ok := KernelParams(c.Simulator, c.NChoices)
	if !ok {
		add("unknown simulator %q", c.Simulator)
	} else {
		for _, p := range required {
			if !seen[p] {
				add("simulator %s requires parameter %q", c.Simulator, p)
			}
		}
		if TwoChoice(c.Simulator) && c.NChoices != 2 {
			add("simulator %s produces exactly 2 choices, nchoices=%d", c.Simulator, c.NChoices)
		} else if len(c.Choices) == c.NChoices {
			if want := KernelChoices(c.Simulator, c.NChoices); !slices.Equal(c.Choices, want) {
				add("simulator %s reports choices %v, got %v", c.Simulator, want, c.Choices)
			}
		}
	}

	shape, ok := boundary.Lookup(c.Boundary)
	if !ok {
		add("unknown boundary %q", c.Boundary)
	} else if !slices.Equal(shape.Params, c.BoundaryParams) {
		add("boundary %s takes params %v, got %v", c.Boundary, shape.Params, c.BoundaryParams)
	}
	for _, p := range c.BoundaryParams {
		if !seen[p] {
			add("boundary parameter %q is not in params", p)
		}
	}
	for _, p := range c.HDDMInclude {
		if !seen[p] {
			add("hddm_include parameter %q is not in params", p)
		}
	}

	return errors.Join(errs...)
}
