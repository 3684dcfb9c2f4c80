package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a seeded simulation check.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Model is a registered model name.
	Model string `yaml:"model" json:"model"`

	// Theta maps parameter names to values; unset parameters take the
	// model's defaults.
	Theta map[string]float64 `yaml:"theta" json:"theta"`

	NSamples int     `yaml:"n_samples" json:"n_samples"`
	Seed     uint64  `yaml:"seed" json:"seed"`
	DeltaT   float64 `yaml:"delta_t,omitempty" json:"delta_t,omitempty"`
	MaxT     float64 `yaml:"max_t,omitempty" json:"max_t,omitempty"`

	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// Assertion checks one summary statistic.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Choice selects a response. Required for choice_proportion; optional
	// for mean_rt and count, which otherwise cover all decided samples.
	Choice *int `yaml:"choice,omitempty" json:"choice,omitempty"`

	Expect    *float64 `yaml:"expect,omitempty" json:"expect,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertChoiceProportion = "choice_proportion"
	AssertMeanRT           = "mean_rt"
	AssertOmissionRate     = "omission_rate"
	AssertCount            = "count"
	AssertMinRT            = "min_rt"
)

var assertionTypes = []string{AssertChoiceProportion, AssertMeanRT, AssertOmissionRate, AssertCount, AssertMinRT}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.NSamples <= 0 {
		return fmt.Errorf("n_samples must be positive")
	}
	if s.DeltaT < 0 || s.MaxT < 0 {
		return fmt.Errorf("delta_t and max_t must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !slices.Contains(assertionTypes, a.Type) {
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Type == AssertChoiceProportion && a.Choice == nil {
		return fmt.Errorf("assertions[%d]: choice is required for %s", index, a.Type)
	}
	if a.Expect == nil && a.Min == nil && a.Max == nil {
		return fmt.Errorf("assertions[%d]: one of expect, min or max is required", index)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return fmt.Errorf("assertions[%d]: min must not exceed max", index)
	}
	return nil
}
