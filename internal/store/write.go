package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ssmgen/internal/canon"
	"github.com/roach88/ssmgen/internal/datagen"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run datagen.RunInfo) error {
	cfgJSON, err := marshalCanonical("config", run.Config)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	modelJSON, err := marshalCanonical("model config", run.ModelConfig)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	namesJSON, err := marshalCanonical("feature names", run.FeatureNames)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, model, config_hash, config, model_config, feature_names, n_rounds, generator_version, schema_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.RunID,
		run.Model,
		run.ConfigHash,
		cfgJSON,
		modelJSON,
		namesJSON,
		run.NRounds,
		canon.GeneratorVersion,
		canon.SchemaVersion,
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteRound inserts a round's parameter sets, training rows and rejected
// draws, then marks the round complete, all in one transaction.
//
// Note: The run referenced by round.RunID must exist (foreign key constraint).
func (s *Store) WriteRound(ctx context.Context, round datagen.Round) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write round: begin: %w", err)
	}
	defer tx.Rollback()

	psStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO parameter_sets
		(id, run_id, idx, round, theta, attempts, choice_probabilities, omission_probability, histogram, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write round: prepare: %w", err)
	}
	defer psStmt.Close()

	rowStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_rows (param_set_id, row, features, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write round: prepare: %w", err)
	}
	defer rowStmt.Close()

	for _, rec := range round.Records {
		if err := s.writeRecord(ctx, psStmt, rowStmt, round.RunID, rec); err != nil {
			return fmt.Errorf("write round %d: %w", round.Index, err)
		}
	}

	for _, rej := range round.Rejected {
		thetaJSON, err := marshalCanonical("theta", rej.Theta)
		if err != nil {
			return fmt.Errorf("write round %d: %w", round.Index, err)
		}
		statsJSON, err := marshalCanonical("stats", rej.Stats)
		if err != nil {
			return fmt.Errorf("write round %d: %w", round.Index, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rejected_sets (run_id, idx, attempt, theta, stats)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, round.RunID, rej.Index, rej.Attempt, thetaJSON, statsJSON)
		if err != nil {
			return fmt.Errorf("write round %d: rejected set: %w", round.Index, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rounds (run_id, idx, accepted, rejected, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, round.RunID, round.Index, len(round.Records), len(round.Rejected), s.timestamp())
	if err != nil {
		return fmt.Errorf("write round %d: mark complete: %w", round.Index, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write round %d: commit: %w", round.Index, err)
	}
	return nil
}

func (s *Store) writeRecord(ctx context.Context, psStmt, rowStmt *sql.Stmt, runID string, rec *datagen.Record) error {
	thetaJSON, err := marshalCanonical("theta", rec.Theta)
	if err != nil {
		return err
	}
	probsJSON, err := marshalCanonical("choice probabilities", rec.ChoiceProbabilities)
	if err != nil {
		return err
	}
	statsJSON, err := marshalCanonical("stats", rec.Stats)
	if err != nil {
		return err
	}
	var histJSON sql.NullString
	if rec.Histogram != nil {
		h, err := marshalCanonical("histogram", rec.Histogram)
		if err != nil {
			return err
		}
		histJSON = sql.NullString{String: h, Valid: true}
	}

	_, err = psStmt.ExecContext(ctx,
		rec.ID,
		runID,
		rec.Index,
		rec.Round,
		thetaJSON,
		rec.Attempts,
		probsJSON,
		rec.OmissionProbability,
		histJSON,
		statsJSON,
	)
	if err != nil {
		return fmt.Errorf("parameter set %d: %w", rec.Index, err)
	}
	if s.indexOnly {
		return nil
	}

	for i, row := range rec.Data {
		features, err := marshalRow(row)
		if err != nil {
			return err
		}
		if _, err := rowStmt.ExecContext(ctx, rec.ID, i, features, rec.Labels[i]); err != nil {
			return fmt.Errorf("parameter set %d row %d: %w", rec.Index, i, err)
		}
	}
	return nil
}
