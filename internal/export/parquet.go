package export

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/roach88/ssmgen/internal/datagen"
)

// ParquetExt is the extension of Parquet round files.
const ParquetExt = "parquet"

// ParquetWriter writes rounds as Parquet files through an in-process
// DuckDB database.
type ParquetWriter struct {
	dir string
	db  *sql.DB
}

// NewParquetWriter opens an in-memory DuckDB for staging rounds into dir.
func NewParquetWriter(dir string) (*ParquetWriter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB: %w", err)
	}
	return &ParquetWriter{dir: dir, db: db}, nil
}

// Close releases the DuckDB connection.
func (w *ParquetWriter) Close() error {
	return w.db.Close()
}

// WriteRun writes the run metadata file.
func (w *ParquetWriter) WriteRun(_ context.Context, run datagen.RunInfo) error {
	return writeRunFile(w.dir, run)
}

// WriteRound stages the round's rows in a DuckDB table and copies it to a
// Parquet file.
func (w *ParquetWriter) WriteRound(ctx context.Context, round datagen.Round) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	cols := Columns(round.FeatureNames)
	defs := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case ColParamSetID:
			defs[i] = quoteIdent(c) + " VARCHAR"
		case ColIndex:
			defs[i] = quoteIdent(c) + " BIGINT"
		default:
			defs[i] = quoteIdent(c) + " FLOAT"
		}
	}

	if _, err := w.db.ExecContext(ctx, "CREATE OR REPLACE TABLE round_rows ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	defer w.db.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS round_rows")

	if err := w.stage(ctx, round, len(cols)); err != nil {
		return fmt.Errorf("stage round %d: %w", round.Index, err)
	}

	path := RoundPath(w.dir, round.Model, round.RunID, round.Index, ParquetExt)
	return writeAtomic(path, func(tmp string) error {
		_, err := w.db.ExecContext(ctx, "COPY round_rows TO "+quoteLiteral(tmp)+" (FORMAT PARQUET)")
		if err != nil {
			return fmt.Errorf("copy round %d to parquet: %w", round.Index, err)
		}
		return nil
	})
}

// stage bulk-loads the round's rows into round_rows through the driver's
// appender.
func (w *ParquetWriter) stage(ctx context.Context, round datagen.Round, nCols int) error {
	conn, err := w.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(raw any) error {
		dc, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", raw)
		}
		app, err := duckdb.NewAppenderFromConn(dc, "", "round_rows")
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}

		nFeatures := len(round.FeatureNames)
		row := make([]driver.Value, nCols)
		for _, rec := range round.Records {
			if err := ctx.Err(); err != nil {
				app.Close()
				return err
			}
			for i, data := range rec.Data {
				row[0] = rec.ID
				row[1] = int64(rec.Index)
				for j := 0; j < nFeatures; j++ {
					row[2+j] = data[j]
				}
				row[nCols-1] = rec.Labels[i]
				if err := app.AppendRow(row...); err != nil {
					app.Close()
					return fmt.Errorf("append row: %w", err)
				}
			}
		}
		return app.Close()
	})
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
