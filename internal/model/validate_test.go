package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDDM(t *testing.T) *Config {
	t.Helper()
	cfg, ok := NewRegistry().Lookup("ddm")
	if !ok {
		t.Fatal("ddm not registered")
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "name is required"},
		{"n_params mismatch", func(c *Config) { c.NParams = 5 }, "n_params=5"},
		{"short bounds", func(c *Config) { c.ParamBoundsLow = c.ParamBoundsLow[:2] }, "param bounds must have 4 entries"},
		{"inverted bounds", func(c *Config) { c.ParamBoundsLow[1] = 3.0 }, "low < high"},
		{"default out of bounds", func(c *Config) { c.DefaultParams[2] = 0.95 }, "default z=0.95"},
		{"duplicate param", func(c *Config) { c.Params[3] = "v" }, "duplicate parameter"},
		{"too few choices", func(c *Config) { c.NChoices = 1; c.Choices = []int{1} }, "nchoices must be >= 2"},
		{"choices length", func(c *Config) { c.Choices = []int{1} }, "choices must have 2 entries"},
		{"unknown simulator", func(c *Config) { c.Simulator = "levy_flexbound" }, "unknown simulator"},
		{"two-choice kernel with 0/1 choices", func(c *Config) { c.Choices = []int{0, 1} }, "reports choices [-1 1], got [0 1]"},
		{"two-choice kernel with three choices", func(c *Config) { c.NChoices = 3; c.Choices = []int{0, 1, 2} }, "produces exactly 2 choices"},
		{"unknown boundary", func(c *Config) { c.Boundary = "conflict" }, "unknown boundary"},
		{"boundary params mismatch", func(c *Config) { c.BoundaryParams = []string{"theta"} }, "boundary constant takes params"},
		{"hddm include unknown", func(c *Config) { c.HDDMInclude = []string{"sv"} }, "hddm_include parameter \"sv\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDDM(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateAccumulatorChoices(t *testing.T) {
	cfg, ok := NewRegistry().Lookup("race_3")
	if !ok {
		t.Fatal("race_3 not registered")
	}
	assert.NoError(t, cfg.Validate())

	cfg.Choices = []int{1, 2, 3}
	assert.ErrorContains(t, cfg.Validate(), "reports choices [0 1 2], got [1 2 3]")

	cfg.Choices = []int{-1, 0, 1}
	assert.ErrorContains(t, cfg.Validate(), "reports choices [0 1 2]")
}

func TestKernelChoices(t *testing.T) {
	assert.Equal(t, []int{-1, 1}, KernelChoices(KernelDDM, 2))
	assert.Equal(t, []int{-1, 1}, KernelChoices(KernelFullDDM, 2))
	assert.Equal(t, []int{0, 1, 2, 3}, KernelChoices(KernelLCA, 4))
	assert.Equal(t, []int{0, 1}, KernelChoices(KernelRace, 2))
}

func TestValidateMissingKernelParam(t *testing.T) {
	cfg := validDDM(t)
	cfg.Params = []string{"v", "a", "z", "t0"}
	err := cfg.Validate()
	assert.ErrorContains(t, err, `requires parameter "t"`)
}
