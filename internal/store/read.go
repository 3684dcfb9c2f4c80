package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/model"
)

// RunSummary is a run with its progress counts.
type RunSummary struct {
	ID               string    `json:"id"`
	Model            string    `json:"model"`
	ConfigHash       string    `json:"config_hash"`
	NRounds          int       `json:"n_rounds"`
	CompletedRounds  int       `json:"completed_rounds"`
	Accepted         int       `json:"accepted"`
	Rejected         int       `json:"rejected"`
	GeneratorVersion string    `json:"generator_version"`
	CreatedAt        time.Time `json:"created_at"`
}

// Complete reports whether every round of the run has been written.
func (r RunSummary) Complete() bool {
	return r.CompletedRounds >= r.NRounds
}

// FindRun returns the most recent run with configHash and its completed
// rounds. Implements datagen.Resumer.
func (s *Store) FindRun(ctx context.Context, configHash string) (string, []int, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs
		WHERE config_hash = ?
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, configHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("find run: %w", err)
	}

	completed, err := s.CompletedRounds(ctx, id)
	if err != nil {
		return "", nil, false, err
	}
	return id, completed, true, nil
}

// CompletedRounds returns the indices of the run's completed rounds in
// ascending order. Returns an empty slice (not nil) if none are complete.
func (s *Store) CompletedRounds(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx FROM rounds WHERE run_id = ? ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []int{}
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

// ReadRun retrieves a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (*datagen.RunInfo, error) {
	var (
		run                           datagen.RunInfo
		cfgJSON, modelJSON, namesJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, model, config_hash, config, model_config, feature_names, n_rounds
		FROM runs
		WHERE id = ?
	`, runID).Scan(&run.RunID, &run.Model, &run.ConfigHash, &cfgJSON, &modelJSON, &namesJSON, &run.NRounds)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}

	run.Config = &datagen.Config{}
	if err := unmarshalText("config", cfgJSON, run.Config); err != nil {
		return nil, err
	}
	run.ModelConfig = &model.Config{}
	if err := unmarshalText("model config", modelJSON, run.ModelConfig); err != nil {
		return nil, err
	}
	if err := unmarshalText("feature names", namesJSON, &run.FeatureNames); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns every run with progress counts, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.model, r.config_hash, r.n_rounds, r.generator_version, r.created_at,
		       COUNT(d.idx), COALESCE(SUM(d.accepted), 0), COALESCE(SUM(d.rejected), 0)
		FROM runs r
		LEFT JOIN rounds d ON d.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r       RunSummary
			created string
		)
		if err := rows.Scan(&r.ID, &r.Model, &r.ConfigHash, &r.NRounds, &r.GeneratorVersion, &created,
			&r.CompletedRounds, &r.Accepted, &r.Rejected); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRecords returns the run's accepted parameter sets with their training
// rows, ordered by parameter-set index.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]*datagen.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idx, round, theta, attempts, choice_probabilities, omission_probability, histogram, stats
		FROM parameter_sets
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query parameter sets: %w", err)
	}

	records := []*datagen.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate parameter sets: %w", err)
	}
	rows.Close()

	// Training rows are read after the parameter-set cursor is closed; the
	// store holds a single connection.
	for _, rec := range records {
		if err := s.readTrainingRows(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*datagen.Record, error) {
	var (
		rec                             datagen.Record
		thetaJSON, probsJSON, statsJSON string
		histJSON                        sql.NullString
	)
	if err := rows.Scan(&rec.ID, &rec.Index, &rec.Round, &thetaJSON, &rec.Attempts,
		&probsJSON, &rec.OmissionProbability, &histJSON, &statsJSON); err != nil {
		return nil, fmt.Errorf("scan parameter set: %w", err)
	}
	if err := unmarshalText("theta", thetaJSON, &rec.Theta); err != nil {
		return nil, err
	}
	if err := unmarshalText("choice probabilities", probsJSON, &rec.ChoiceProbabilities); err != nil {
		return nil, err
	}
	if err := unmarshalText("stats", statsJSON, &rec.Stats); err != nil {
		return nil, err
	}
	if histJSON.Valid {
		if err := unmarshalText("histogram", histJSON.String, &rec.Histogram); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (s *Store) readTrainingRows(ctx context.Context, rec *datagen.Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT features, label FROM training_rows
		WHERE param_set_id = ?
		ORDER BY row ASC
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("query training rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			features string
			label    float32
			row      []float32
		)
		if err := rows.Scan(&features, &label); err != nil {
			return fmt.Errorf("scan training row: %w", err)
		}
		if err := unmarshalText("features", features, &row); err != nil {
			return err
		}
		rec.Data = append(rec.Data, row)
		rec.Labels = append(rec.Labels, label)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate training rows: %w", err)
	}
	return nil
}

// ReadRejected returns the run's rejected draws ordered by (index, attempt).
func (s *Store) ReadRejected(ctx context.Context, runID string) ([]datagen.Rejected, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, attempt, theta, stats FROM rejected_sets
		WHERE run_id = ?
		ORDER BY idx ASC, attempt ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rejected sets: %w", err)
	}
	defer rows.Close()

	out := []datagen.Rejected{}
	for rows.Next() {
		var (
			rej              datagen.Rejected
			thetaJSON, stats string
		)
		if err := rows.Scan(&rej.Index, &rej.Attempt, &thetaJSON, &stats); err != nil {
			return nil, fmt.Errorf("scan rejected set: %w", err)
		}
		if err := unmarshalText("theta", thetaJSON, &rej.Theta); err != nil {
			return nil, err
		}
		if err := unmarshalText("stats", stats, &rej.Stats); err != nil {
			return nil, err
		}
		out = append(out, rej)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejected sets: %w", err)
	}
	return out, nil
}

// RejectedCount returns the number of rejected draws stored for the run.
func (s *Store) RejectedCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rejected_sets WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rejected sets: %w", err)
	}
	return n, nil
}
