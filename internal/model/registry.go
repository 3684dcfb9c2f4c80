package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/ssmgen/internal/boundary"
)

// Registry holds model configs by name. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Config
}

// NewRegistry returns a registry preloaded with the built-in models.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]*Config)}
	for _, cfg := range builtins() {
		r.models[cfg.Name] = cfg
	}
	return r
}

// Lookup returns a copy of the named config.
func (r *Registry) Lookup(name string) (*Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.models[name]
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// Register validates cfg and adds it. Names must be unique.
func (r *Registry) Register(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[cfg.Name]; exists {
		return fmt.Errorf("model %s: already registered", cfg.Name)
	}
	r.models[cfg.Name] = cfg.Clone()
	return nil
}

// Names returns registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// builtins returns the models compiled into the binary.
func builtins() []*Config {
	return []*Config{
		{
			Name:            "ddm",
			Simulator:       KernelDDM,
			Params:          []string{"v", "a", "z", "t"},
			ParamBoundsLow:  []float64{-3.0, 0.3, 0.1, 0.0},
			ParamBoundsHigh: []float64{3.0, 2.5, 0.9, 2.0},
			Boundary:        boundary.Constant,
			NParams:         4,
			DefaultParams:   []float64{0.0, 1.0, 0.5, 0.001},
			HDDMInclude:     []string{"z"},
			NChoices:        2,
			Choices:         []int{-1, 1},
		},
		{
			Name:            "angle",
			Simulator:       KernelDDM,
			Params:          []string{"v", "a", "z", "t", "theta"},
			ParamBoundsLow:  []float64{-3.0, 0.3, 0.1, 0.001, -0.1},
			ParamBoundsHigh: []float64{3.0, 3.0, 0.9, 2.0, 1.3},
			Boundary:        boundary.Angle,
			BoundaryParams:  []string{"theta"},
			NParams:         5,
			DefaultParams:   []float64{0.0, 1.0, 0.5, 0.001, 0.0},
			HDDMInclude:     []string{"z", "theta"},
			NChoices:        2,
			Choices:         []int{-1, 1},
		},
		{
			Name:            "weibull",
			Simulator:       KernelDDM,
			Params:          []string{"v", "a", "z", "t", "alpha", "beta"},
			ParamBoundsLow:  []float64{-2.5, 0.3, 0.2, 0.001, 0.31, 0.31},
			ParamBoundsHigh: []float64{2.5, 2.5, 0.8, 2.0, 4.99, 6.99},
			Boundary:        boundary.WeibullCDF,
			BoundaryParams:  []string{"alpha", "beta"},
			NParams:         6,
			DefaultParams:   []float64{0.0, 1.0, 0.5, 0.001, 3.0, 3.0},
			HDDMInclude:     []string{"z", "alpha", "beta"},
			NChoices:        2,
			Choices:         []int{-1, 1},
		},
		{
			Name:            "ornstein",
			Simulator:       KernelOrnstein,
			Params:          []string{"v", "a", "z", "g", "t"},
			ParamBoundsLow:  []float64{-2.0, 0.3, 0.1, -1.0, 0.001},
			ParamBoundsHigh: []float64{2.0, 3.0, 0.9, 1.0, 2.0},
			Boundary:        boundary.Constant,
			NParams:         5,
			DefaultParams:   []float64{0.0, 1.0, 0.5, 0.0, 0.001},
			HDDMInclude:     []string{"z", "g"},
			NChoices:        2,
			Choices:         []int{-1, 1},
		},
		{
			Name:            "full_ddm",
			Simulator:       KernelFullDDM,
			Params:          []string{"v", "a", "z", "t", "sz", "sv", "st"},
			ParamBoundsLow:  []float64{-3.0, 0.3, 0.3, 0.25, 0.001, 0.001, 0.001},
			ParamBoundsHigh: []float64{3.0, 2.5, 0.7, 2.25, 0.2, 2.0, 0.25},
			Boundary:        boundary.Constant,
			NParams:         7,
			DefaultParams:   []float64{0.0, 1.0, 0.5, 0.25, 0.001, 0.001, 0.001},
			HDDMInclude:     []string{"z", "st", "sv", "sz"},
			NChoices:        2,
			Choices:         []int{-1, 1},
		},
		{
			Name:            "race_3",
			Simulator:       KernelRace,
			Params:          []string{"v0", "v1", "v2", "a", "z0", "z1", "z2", "t"},
			ParamBoundsLow:  []float64{0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 0.0},
			ParamBoundsHigh: []float64{2.5, 2.5, 2.5, 3.0, 0.9, 0.9, 0.9, 2.0},
			Boundary:        boundary.Constant,
			NParams:         8,
			DefaultParams:   []float64{0.0, 0.0, 0.0, 2.0, 0.5, 0.5, 0.5, 0.001},
			HDDMInclude:     []string{"v0", "v1", "v2", "a", "z0", "z1", "z2", "t"},
			NChoices:        3,
			Choices:         []int{0, 1, 2},
		},
		{
			Name:            "lca_3",
			Simulator:       KernelLCA,
			Params:          []string{"v0", "v1", "v2", "a", "z0", "z1", "z2", "g", "b", "t"},
			ParamBoundsLow:  []float64{0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
			ParamBoundsHigh: []float64{2.5, 2.5, 2.5, 3.0, 0.9, 0.9, 0.9, 1.0, 1.0, 2.0},
			Boundary:        boundary.Constant,
			NParams:         10,
			DefaultParams:   []float64{0.0, 0.0, 0.0, 2.0, 0.5, 0.5, 0.5, 0.0, 0.0, 0.001},
			HDDMInclude:     []string{"v0", "v1", "v2", "a", "z0", "z1", "z2", "g", "b", "t"},
			NChoices:        3,
			Choices:         []int{0, 1, 2},
		},
	}
}
