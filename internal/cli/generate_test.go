package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/export"
	"github.com/roach88/ssmgen/internal/store"
)

const smallGenerateConfig = `
model: ddm
n_samples: 300
n_parameter_sets: 4
n_parameter_sets_rejected: 10
n_training_samples_by_parameter_set: 20
n_subruns: 2
n_cpus: 2
max_t: 10
seed: 11
`

// generate runs the generate command into a fresh output folder.
func generate(t *testing.T, cfgPath, outDir string, extra ...string) GenerateOutput {
	t.Helper()
	args := append([]string{"generate", "--config", cfgPath, "--output-folder", outDir, "--format", "json"}, extra...)
	out, stderr, err := execute(t, args...)
	require.NoError(t, err, "stdout: %s\nstderr: %s", out, stderr)
	assert.Contains(t, stderr, "n_cpus used")

	var got GenerateOutput
	assert.Equal(t, "ok", decodeData(t, out, &got))
	return got
}

func TestGenerate_SQLiteAndResume(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)
	outDir := filepath.Join(dir, "out")

	first := generate(t, cfgPath, outDir)
	assert.Equal(t, filepath.Join(outDir, DatabaseName), first.Database)
	assert.Equal(t, datagen.FormatSQLite, first.Format)
	require.Len(t, first.Models, 1)
	m := first.Models[0]
	assert.Equal(t, "ddm", m.Model)
	assert.False(t, m.Resumed)
	assert.Equal(t, 4, m.Accepted+m.Dropped)
	assert.FileExists(t, filepath.Join(outDir, ConfigCopyName))

	st, err := store.Open(first.Database)
	require.NoError(t, err)
	records, err := st.ReadRecords(t.Context(), m.RunID)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.Len(t, records, m.Accepted)
	for _, rec := range records {
		assert.Len(t, rec.Data, 20)
	}

	second := generate(t, cfgPath, outDir)
	require.Len(t, second.Models, 1)
	assert.True(t, second.Models[0].Resumed)
	assert.Equal(t, m.RunID, second.Models[0].RunID)
	assert.Equal(t, []int{0, 1}, second.Models[0].SkippedRounds)
}

func TestGenerate_Arrow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)
	outDir := filepath.Join(dir, "out")

	got := generate(t, cfgPath, outDir, "--output-format", "arrow", "--n-cpus", "1")
	require.Len(t, got.Models, 1)
	runID := got.Models[0].RunID

	rows := 0
	for round := 0; round < 2; round++ {
		table, err := export.ReadArrow(export.RoundPath(outDir, "ddm", runID, round, export.ArrowExt))
		require.NoError(t, err)
		assert.Equal(t, runID, table.Metadata["run_id"])
		rows += len(table.Labels)
	}
	assert.Equal(t, 20*got.Models[0].Accepted, rows)
	assert.FileExists(t, export.RunPath(outDir, "ddm", runID))

	// The index tracks progress without training rows.
	st, err := store.Open(got.Database)
	require.NoError(t, err)
	defer st.Close()
	completed, err := st.CompletedRounds(t.Context(), runID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, completed)
	records, err := st.ReadRecords(t.Context(), runID)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Empty(t, rec.Data)
	}
}

func TestGenerate_Parquet(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)
	outDir := filepath.Join(dir, "out")

	got := generate(t, cfgPath, outDir, "--output-format", "parquet")
	runID := got.Models[0].RunID
	for round := 0; round < 2; round++ {
		assert.FileExists(t, export.RoundPath(outDir, "ddm", runID, round, export.ParquetExt))
	}
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "generate")
	require.Error(t, err, "--config is required")

	_, _, err = execute(t, "generate", "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := writeFile(t, dir, "bad.yaml", "model: ddm\nn_samples: -1\n")
	out, _, err := execute(t, "generate", "--config", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfig)

	unknown := writeFile(t, dir, "unknown.yaml", "model: nope\n")
	_, _, err = execute(t, "generate", "--config", unknown, "--output-folder", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model "nope"`)

	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)
	_, _, err = execute(t, "generate", "--config", cfgPath, "--output-format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_format")
}

func TestGenerate_Cancelled(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"generate", "--config", cfgPath, "--output-folder", filepath.Join(dir, "out")})
	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadGenerateConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gen.yaml", smallGenerateConfig)

	cfg, err := loadGenerateConfig(&GenerateOptions{
		Config:       cfgPath,
		OutputFolder: "elsewhere",
		OutputFormat: datagen.FormatArrow,
		NCPUs:        0,
	})
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", cfg.OutputFolder)
	assert.Equal(t, datagen.FormatArrow, cfg.OutputFormat)
	assert.Equal(t, datagen.CPUs(0), cfg.NCPUs)

	cfg, err = loadGenerateConfig(&GenerateOptions{Config: cfgPath, NCPUs: -1})
	require.NoError(t, err)
	assert.Equal(t, datagen.CPUs(2), cfg.NCPUs)
	_, statErr := os.Stat("elsewhere")
	assert.True(t, os.IsNotExist(statErr), "loading a config creates nothing")
}
