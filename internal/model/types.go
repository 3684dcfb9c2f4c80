package model

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Simulator kernel identifiers.
const (
	KernelDDM      = "ddm_flexbound"
	KernelOrnstein = "ornstein_uhlenbeck"
	KernelFullDDM  = "full_ddm"
	KernelRace     = "race"
	KernelLCA      = "lca"
)

// Config describes one sequential-sampling-model variant.
type Config struct {
	// Name identifies the model (e.g., "ddm", "angle").
	Name string `json:"name" yaml:"name"`

	// Simulator is the kernel that produces trajectories.
	Simulator string `json:"simulator" yaml:"simulator"`

	// Params lists parameter names in theta order.
	Params []string `json:"params" yaml:"params"`

	// ParamBoundsLow and ParamBoundsHigh are inclusive sampling bounds,
	// aligned with Params.
	ParamBoundsLow  []float64 `json:"param_bounds_low" yaml:"param_bounds_low"`
	ParamBoundsHigh []float64 `json:"param_bounds_high" yaml:"param_bounds_high"`

	// Boundary names the boundary shape (see package boundary).
	Boundary string `json:"boundary_name" yaml:"boundary_name"`

	// BoundaryParams lists the subset of Params consumed by the boundary.
	BoundaryParams []string `json:"boundary_params,omitempty" yaml:"boundary_params,omitempty"`

	NParams       int       `json:"n_params" yaml:"n_params"`
	DefaultParams []float64 `json:"default_params" yaml:"default_params"`

	// HDDMInclude lists parameters exposed to hierarchical-inference tooling.
	HDDMInclude []string `json:"hddm_include,omitempty" yaml:"hddm_include,omitempty"`

	NChoices int   `json:"nchoices" yaml:"nchoices"`
	Choices  []int `json:"choices" yaml:"choices"`
}

// ParamIndex returns the theta position of the named parameter, or -1.
func (c *Config) ParamIndex(name string) int {
	return slices.Index(c.Params, name)
}

// ThetaFromMap builds a theta vector from named values.
// Missing names fall back to DefaultParams; unknown names are an error.
func (c *Config) ThetaFromMap(values map[string]float64) ([]float64, error) {
	theta := slices.Clone(c.DefaultParams)
	if len(theta) != len(c.Params) {
		theta = make([]float64, len(c.Params))
	}
	for name, v := range values {
		i := c.ParamIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("model %s: unknown parameter %q", c.Name, name)
		}
		theta[i] = v
	}
	return theta, nil
}

// ThetaMap returns theta keyed by parameter name.
func (c *Config) ThetaMap(theta []float64) map[string]float64 {
	out := make(map[string]float64, len(c.Params))
	for i, name := range c.Params {
		if i < len(theta) {
			out[name] = theta[i]
		}
	}
	return out
}

// CheckBounds reports the first parameter outside its bounds.
func (c *Config) CheckBounds(theta []float64) error {
	if len(theta) != len(c.Params) {
		return fmt.Errorf("model %s: theta has %d values, want %d", c.Name, len(theta), len(c.Params))
	}
	for i, v := range theta {
		if v < c.ParamBoundsLow[i] || v > c.ParamBoundsHigh[i] {
			return fmt.Errorf("model %s: %s=%g outside [%g, %g]",
				c.Name, c.Params[i], v, c.ParamBoundsLow[i], c.ParamBoundsHigh[i])
		}
	}
	return nil
}

// UniformSample draws theta uniformly within the parameter bounds.
func (c *Config) UniformSample(rng *rand.Rand) []float64 {
	theta := make([]float64, len(c.Params))
	for i := range theta {
		lo, hi := c.ParamBoundsLow[i], c.ParamBoundsHigh[i]
		theta[i] = lo + rng.Float64()*(hi-lo)
	}
	return theta
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = slices.Clone(c.Params)
	out.ParamBoundsLow = slices.Clone(c.ParamBoundsLow)
	out.ParamBoundsHigh = slices.Clone(c.ParamBoundsHigh)
	out.BoundaryParams = slices.Clone(c.BoundaryParams)
	out.DefaultParams = slices.Clone(c.DefaultParams)
	out.HDDMInclude = slices.Clone(c.HDDMInclude)
	out.Choices = slices.Clone(c.Choices)
	return &out
}

// KernelParams returns the parameter names a kernel reads for a model with
// nChoices response options.
func KernelParams(kernel string, nChoices int) ([]string, bool) {
	switch kernel {
	case KernelDDM:
		return []string{"v", "a", "z", "t"}, true
	case KernelOrnstein:
		return []string{"v", "a", "z", "g", "t"}, true
	case KernelFullDDM:
		return []string{"v", "a", "z", "t", "sz", "sv", "st"}, true
	case KernelRace:
		return accumulatorParams(nChoices, "t"), true
	case KernelLCA:
		return accumulatorParams(nChoices, "g", "b", "t"), true
	default:
		return nil, false
	}
}

// accumulatorParams lays out v0..vN-1, a, z0..zN-1 followed by extra names.
func accumulatorParams(n int, extra ...string) []string {
	out := make([]string, 0, 2*n+1+len(extra))
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("v%d", i))
	}
	out = append(out, "a")
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("z%d", i))
	}
	return append(out, extra...)
}

// KernelChoices returns the choice labels a kernel reports for a model with
// nChoices response options: -1/+1 for two-choice diffusions, 0..n-1 for
// accumulator kernels.
func KernelChoices(kernel string, nChoices int) []int {
	if TwoChoice(kernel) {
		return []int{-1, 1}
	}
	out := make([]int, max(nChoices, 0))
	for i := range out {
		out[i] = i
	}
	return out
}

// TwoChoice reports whether the kernel is a single-accumulator diffusion
// with symmetric boundaries and choices -1/+1.
func TwoChoice(kernel string) bool {
	switch kernel {
	case KernelDDM, KernelOrnstein, KernelFullDDM:
		return true
	}
	return false
}
