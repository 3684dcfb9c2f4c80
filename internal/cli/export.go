package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	To       string // arrow | parquet
	Out      string
}

// ExportOutput is the JSON payload of the export command.
type ExportOutput struct {
	RunID  string `json:"run_id"`
	Format string `json:"format"`
	Dir    string `json:"dir"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a stored run to Arrow or Parquet files",
		Long: `Replay a run stored in SQLite into one file per round.

Only runs generated with output_format sqlite hold training rows in the
database; runs generated as arrow or parquet already have their files.

Examples:
  ssmgen export 0190b3c4-... --to parquet --out ./export`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	defaultDB := filepath.Join(datagen.DefaultConfig().OutputFolder, DatabaseName)
	cmd.Flags().StringVar(&opts.Database, "db", defaultDB, "path to the run database")
	cmd.Flags().StringVar(&opts.To, "to", datagen.FormatParquet, "file format (arrow|parquet)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *ExportOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer st.Close()

	var sink datagen.Sink
	switch opts.To {
	case datagen.FormatArrow:
		sink = export.NewArrowWriter(opts.Out)
	case datagen.FormatParquet:
		pw, err := export.NewParquetWriter(opts.Out)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeExport, err)
		}
		defer pw.Close()
		sink = pw
	default:
		return formatter.Fail(ExitCommandError, ErrCodeExport, fmt.Errorf("unsupported format %q: must be arrow or parquet", opts.To))
	}

	formatter.VerboseLog("Exporting run %s from %s to %s", runID, opts.Database, opts.Out)
	if err := export.Export(cmd.Context(), st, runID, sink); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("run %q not found", runID))
		}
		return formatter.Fail(ExitFailure, ErrCodeExport, err)
	}

	out := ExportOutput{RunID: runID, Format: opts.To, Dir: opts.Out}
	return formatter.Render(out, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Exported run %s as %s to %s\n", runID, opts.To, opts.Out)
	})
}
