package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/compiler"
)

func TestValidateModels(t *testing.T) {
	out, _, err := execute(t, "validate", modelsDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All definitions valid")
}

func TestValidateModelsJSON(t *testing.T) {
	out, _, err := execute(t, "validate", modelsDir(t), "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	assert.Equal(t, "ok", decodeData(t, out, &result))
	assert.True(t, result.Valid)
	assert.ElementsMatch(t, []string{"ddm_wide", "race_two"}, result.Models)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `
package models

model: bad: {
	simulator: "ddm_flexbound"
	boundary:  "spiral"
	params: {
		v: {low: -3, high: 3}
		a: {low: 0.3, high: 2.5}
		z: {low: 0.1, high: 0.9}
		t: {low: 0, high: 2}
	}
	hddm_include: ["q"]
}
`)

	out, _, err := execute(t, "validate", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	assert.Equal(t, "error", decodeData(t, out, &result))
	assert.False(t, result.Valid)
	var codes []string
	for _, e := range result.Errors {
		assert.Equal(t, "models", e.Source)
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, compiler.ErrUnknownBoundary)
	assert.Contains(t, codes, compiler.ErrUnknownHDDMParam)
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gen.yaml", "models: [ddm, angle]\nn_samples: 500\n")

	out, _, err := execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All definitions valid")
}

func TestValidateConfigWithCustomModel(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gen.yaml", "model: ddm_wide\n")

	_, _, err := execute(t, "validate", "--config", cfg)
	require.Error(t, err, "ddm_wide is unknown without its definitions")

	out, _, err := execute(t, "validate", modelsDir(t), "--config", cfg)
	require.NoError(t, err, out)
}

func TestValidateConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gen.yaml", `
models: [ddm, nope]
n_samples: 0
kde_data_mixture_probabilities: [0.5, 0.5, 0.5]
`)

	out, _, err := execute(t, "validate", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "n_samples")
	assert.Contains(t, out, "kde_data_mixture_probabilities")
	assert.NotContains(t, out, "nope", "model names are only checked for valid configs")
}

func TestValidateConfigUnknownModel(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gen.yaml", "models: [ddm, nope]\n")

	out, _, err := execute(t, "validate", "--config", cfg, "--format", "json")
	require.Error(t, err)

	var result ValidationResult
	decodeData(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeUnknownModel, result.Errors[0].Code)
	assert.Equal(t, "config", result.Errors[0].Source)
}

func TestValidateNothing(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateMissingDir(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
