package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/datagen"
)

var featureNames = []string{"v", "a", "z", "t", "rt", "choice"}

func testRound(index int) datagen.Round {
	return datagen.Round{
		RunID:        "run-1",
		Model:        "ddm",
		Index:        index,
		FeatureNames: featureNames,
		Records: []*datagen.Record{
			{
				Index:  3,
				ID:     "ps-3",
				Round:  index,
				Data:   [][]float32{{0.5, 1, 0.5, 0.1, 0.7, 1}, {0.5, 1, 0.5, 0.1, -0.2, -1}},
				Labels: []float32{-0.5, -66.77497},
			},
			{
				Index:  4,
				ID:     "ps-4",
				Round:  index,
				Data:   [][]float32{{-1, 2, 0.4, 0.3, 1.25, -1}},
				Labels: []float32{-1.5},
			},
		},
	}
}

type fakeSource struct {
	run     datagen.RunInfo
	records []*datagen.Record
}

func (f *fakeSource) ReadRun(context.Context, string) (*datagen.RunInfo, error) {
	return &f.run, nil
}

func (f *fakeSource) ReadRecords(context.Context, string) ([]*datagen.Record, error) {
	return f.records, nil
}

type roundRecorder struct {
	runs   []datagen.RunInfo
	rounds []datagen.Round
}

func (r *roundRecorder) WriteRun(_ context.Context, run datagen.RunInfo) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *roundRecorder) WriteRound(_ context.Context, round datagen.Round) error {
	r.rounds = append(r.rounds, round)
	return nil
}

func TestRoundPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "ddm_run-1_round2.arrow"), RoundPath("out", "ddm", "run-1", 2, ArrowExt))
	assert.Equal(t, filepath.Join("out", "ddm_run-1.json"), RunPath("out", "ddm", "run-1"))
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"param_set_id", "idx", "rt", "choice", "label"}, Columns([]string{"rt", "choice"}))
}

func TestArrowWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewArrowWriter(dir)
	ctx := context.Background()

	require.NoError(t, w.WriteRun(ctx, datagen.RunInfo{RunID: "run-1", Model: "ddm", FeatureNames: featureNames, NRounds: 1}))
	require.NoError(t, w.WriteRound(ctx, testRound(0)))

	_, err := os.Stat(RunPath(dir, "ddm", "run-1"))
	require.NoError(t, err)

	path := RoundPath(dir, "ddm", "run-1", 0, ArrowExt)
	table, err := ReadArrow(path)
	require.NoError(t, err)

	assert.Equal(t, Columns(featureNames), table.Columns)
	assert.Equal(t, map[string]string{"model": "ddm", "round": "0", "run_id": "run-1"}, table.Metadata)
	assert.Equal(t, []string{"ps-3", "ps-3", "ps-4"}, table.IDs)
	assert.Equal(t, []int64{3, 3, 4}, table.Indices)
	assert.Equal(t, [][]float32{{0.5, 1, 0.5, 0.1, 0.7, 1}, {0.5, 1, 0.5, 0.1, -0.2, -1}, {-1, 2, 0.4, 0.3, 1.25, -1}}, table.Features)
	assert.Equal(t, []float32{-0.5, -66.77497, -1.5}, table.Labels)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file left behind")
}

func TestArrowWriter_EmptyRound(t *testing.T) {
	dir := t.TempDir()
	w := NewArrowWriter(dir)
	round := datagen.Round{RunID: "run-1", Model: "ddm", Index: 1, FeatureNames: featureNames}
	require.NoError(t, w.WriteRound(context.Background(), round))

	table, err := ReadArrow(RoundPath(dir, "ddm", "run-1", 1, ArrowExt))
	require.NoError(t, err)
	assert.Empty(t, table.Labels)
	assert.Len(t, table.Columns, len(featureNames)+3)
}

func TestArrowWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewArrowWriter(t.TempDir()).WriteRound(ctx, testRound(0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadArrow_Missing(t *testing.T) {
	_, err := ReadArrow(filepath.Join(t.TempDir(), "nope.arrow"))
	assert.Error(t, err)
}

func countParquetRows(t *testing.T, w *ParquetWriter, path string) int {
	t.Helper()
	var n int
	err := w.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM read_parquet("+quoteLiteral(path)+")").Scan(&n)
	require.NoError(t, err)
	return n
}

func TestParquetWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewParquetWriter(dir)
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	require.NoError(t, w.WriteRound(ctx, testRound(0)))
	require.NoError(t, w.WriteRound(ctx, testRound(1)))

	for round := 0; round < 2; round++ {
		path := RoundPath(dir, "ddm", "run-1", round, ParquetExt)
		assert.Equal(t, 3, countParquetRows(t, w, path))
	}

	var label float32
	path := RoundPath(dir, "ddm", "run-1", 0, ParquetExt)
	err = w.db.QueryRowContext(ctx,
		"SELECT label FROM read_parquet("+quoteLiteral(path)+") WHERE param_set_id = 'ps-4'").Scan(&label)
	require.NoError(t, err)
	assert.Equal(t, float32(-1.5), label)
}

func TestParquetWriter_LargeRound(t *testing.T) {
	dir := t.TempDir()
	w, err := NewParquetWriter(dir)
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	round := datagen.Round{RunID: "run-big", Model: "ddm", Index: 0, FeatureNames: featureNames}
	for i := 0; i < 40; i++ {
		rec := &datagen.Record{Index: i, ID: fmt.Sprintf("ps-%d", i)}
		for j := 0; j < 250; j++ {
			rec.Data = append(rec.Data, []float32{0.5, 1, 0.5, 0.1, float32(j) / 100, 1})
			rec.Labels = append(rec.Labels, float32(-j))
		}
		round.Records = append(round.Records, rec)
	}
	require.NoError(t, w.WriteRound(ctx, round))

	path := RoundPath(dir, "ddm", "run-big", 0, ParquetExt)
	assert.Equal(t, 10000, countParquetRows(t, w, path))

	var sum float64
	err = w.db.QueryRowContext(ctx,
		"SELECT SUM(label) FROM read_parquet("+quoteLiteral(path)+") WHERE idx = 39").Scan(&sum)
	require.NoError(t, err)
	assert.InDelta(t, -31125, sum, 1e-6)
}

func TestExport(t *testing.T) {
	round0 := testRound(0).Records
	round2 := testRound(2).Records
	src := &fakeSource{
		run:     datagen.RunInfo{RunID: "run-1", Model: "ddm", FeatureNames: featureNames, NRounds: 3},
		records: append(append([]*datagen.Record{}, round0...), round2...),
	}
	sink := &roundRecorder{}

	require.NoError(t, Export(context.Background(), src, "run-1", sink))
	require.Len(t, sink.runs, 1)
	require.Len(t, sink.rounds, 2, "rounds without records are skipped")
	assert.Equal(t, 0, sink.rounds[0].Index)
	assert.Equal(t, 2, sink.rounds[1].Index)
	assert.Equal(t, featureNames, sink.rounds[1].FeatureNames)
	assert.Len(t, sink.rounds[1].Records, 2)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}
