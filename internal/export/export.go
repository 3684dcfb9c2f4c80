package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/ssmgen/internal/canon"
	"github.com/roach88/ssmgen/internal/datagen"
)

// Fixed columns around the feature columns.
const (
	ColParamSetID = "param_set_id"
	ColIndex      = "idx"
	ColLabel      = "label"
)

// RoundPath returns the file path of one round.
func RoundPath(dir, model, runID string, round int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_round%d.%s", model, runID, round, ext))
}

// RunPath returns the path of a run's metadata file.
func RunPath(dir, model, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", model, runID))
}

// Columns returns the full column list for rows with featureNames.
func Columns(featureNames []string) []string {
	cols := make([]string, 0, len(featureNames)+3)
	cols = append(cols, ColParamSetID, ColIndex)
	cols = append(cols, featureNames...)
	return append(cols, ColLabel)
}

// writeRunFile writes the run's canonical JSON metadata next to its rounds.
func writeRunFile(dir string, run datagen.RunInfo) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	data, err := canon.MarshalCanonical(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return writeAtomic(RunPath(dir, run.Model, run.RunID), func(path string) error {
		return os.WriteFile(path, data, 0o644)
	})
}

// writeAtomic calls write with a temporary path and renames the result
// to path on success.
func writeAtomic(path string, write func(tmp string) error) error {
	tmp := path + ".tmp"
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RunSource provides stored runs for re-export.
type RunSource interface {
	ReadRun(ctx context.Context, runID string) (*datagen.RunInfo, error)
	ReadRecords(ctx context.Context, runID string) ([]*datagen.Record, error)
}

// Export replays a stored run into sink, one Round per stored round.
// Rejected draws are not replayed.
func Export(ctx context.Context, src RunSource, runID string, sink datagen.Sink) error {
	run, err := src.ReadRun(ctx, runID)
	if err != nil {
		return err
	}
	records, err := src.ReadRecords(ctx, runID)
	if err != nil {
		return err
	}
	if err := sink.WriteRun(ctx, *run); err != nil {
		return err
	}

	byRound := make(map[int][]*datagen.Record)
	for _, rec := range records {
		byRound[rec.Round] = append(byRound[rec.Round], rec)
	}
	for round := 0; round < run.NRounds; round++ {
		recs, ok := byRound[round]
		if !ok {
			continue
		}
		err := sink.WriteRound(ctx, datagen.Round{
			RunID:        run.RunID,
			Model:        run.Model,
			Index:        round,
			FeatureNames: run.FeatureNames,
			Records:      recs,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
