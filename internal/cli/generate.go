package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/export"
	"github.com/roach88/ssmgen/internal/store"
)

// DatabaseName is the run index created in every output folder.
const DatabaseName = "ssmgen.db"

// ConfigCopyName is the copy of the effective config written next to the data.
const ConfigCopyName = "config.yaml"

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Config       string
	OutputFolder string
	OutputFormat string
	NCPUs        int

	// IDs overrides the run ID generator (for testing).
	IDs datagen.IDGenerator
}

// GenerateOutput is the JSON payload of the generate command.
type GenerateOutput struct {
	Database string            `json:"database"`
	Format   string            `json:"format"`
	Models   []*GeneratedModel `json:"models"`
}

// GeneratedModel summarises one model's run.
type GeneratedModel struct {
	Model string `json:"model"`
	*datagen.ModelData
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate labelled training data",
		Long: `Draw parameter sets uniformly within each model's bounds, simulate them,
and write labelled training rows.

Runs are indexed in <output_folder>/ssmgen.db. Re-running with the same
config resumes the matching run and skips completed rounds. With
output_format arrow or parquet, rows go to one file per round and the
database only tracks progress.

Examples:
  ssmgen generate --config generate.yaml
  ssmgen generate --config generate.yaml --output-format parquet --n-cpus 4`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "generation config file (YAML, required)")
	cmd.Flags().StringVar(&opts.OutputFolder, "output-folder", "", "override output_folder")
	cmd.Flags().StringVar(&opts.OutputFormat, "output-format", "", "override output_format (sqlite|arrow|parquet)")
	cmd.Flags().IntVar(&opts.NCPUs, "n-cpus", -1, "override n_cpus (0 = all)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	slog.SetDefault(newLogger(opts.RootOptions, cmd.ErrOrStderr()))

	cfg, err := loadGenerateConfig(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	reg, err := buildRegistry(opts.ModelsDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err, ErrCodeGeneric), err)
	}

	if err := os.MkdirAll(cfg.OutputFolder, 0o755); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("create output folder: %w", err))
	}
	if err := writeConfigCopy(cfg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
	}

	dbPath := filepath.Join(cfg.OutputFolder, DatabaseName)
	sink, closeSink, err := openSink(cfg, dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer func() {
		if closeErr := closeSink(); closeErr != nil {
			slog.Error("error closing output", "error", closeErr)
		}
	}()

	genOpts := []datagen.Option{datagen.WithSink(sink)}
	if opts.IDs != nil {
		genOpts = append(genOpts, datagen.WithIDGenerator(opts.IDs))
	}
	gen, err := datagen.New(cfg, reg, genOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("generation starting", "models", cfg.Models, "output_folder", cfg.OutputFolder, "format", cfg.OutputFormat)
	ds, err := gen.GenerateDataUniform(ctx, true)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("generation interrupted; completed rounds are kept")
		}
		return formatter.Fail(ExitFailure, ErrCodeGeneration, err)
	}
	slog.Info("generation finished")

	out := GenerateOutput{Database: dbPath, Format: cfg.OutputFormat}
	for name, md := range ds.Models {
		out.Models = append(out.Models, &GeneratedModel{Model: name, ModelData: md})
	}
	sort.Slice(out.Models, func(i, j int) bool { return out.Models[i].Model < out.Models[j].Model })

	return formatter.Render(out, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Generated %d model(s) into %s\n\n", len(out.Models), cfg.OutputFolder)
		for _, m := range out.Models {
			resumed := ""
			if m.Resumed {
				resumed = fmt.Sprintf(" (resumed, %d round(s) skipped)", len(m.SkippedRounds))
			}
			fmt.Fprintf(w, "  %s: run %s, %d accepted, %d rejected, %d dropped%s\n",
				m.Model, m.RunID, m.Accepted, m.RejectedCount, m.Dropped, resumed)
		}
	})
}

// loadGenerateConfig reads the config file and applies flag overrides.
func loadGenerateConfig(opts *GenerateOptions) (*datagen.Config, error) {
	cfg, err := datagen.LoadConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.OutputFolder != "" {
		cfg.OutputFolder = opts.OutputFolder
	}
	if opts.OutputFormat != "" {
		cfg.OutputFormat = opts.OutputFormat
	}
	if opts.NCPUs >= 0 {
		cfg.NCPUs = datagen.CPUs(opts.NCPUs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeConfigCopy(cfg *datagen.Config) error {
	data, err := cfg.Bytes()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputFolder, ConfigCopyName), data, 0o644); err != nil {
		return fmt.Errorf("write config copy: %w", err)
	}
	return nil
}

// openSink opens the run index and, for file formats, the round writer.
// The index is written last so a round is only marked complete once its
// file exists.
func openSink(cfg *datagen.Config, dbPath string) (datagen.Sink, func() error, error) {
	if cfg.OutputFormat == datagen.FormatSQLite {
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}

	st, err := store.Open(dbPath, store.IndexOnly())
	if err != nil {
		return nil, nil, err
	}
	switch cfg.OutputFormat {
	case datagen.FormatArrow:
		return datagen.MultiSink{export.NewArrowWriter(cfg.OutputFolder), st}, st.Close, nil
	case datagen.FormatParquet:
		pw, err := export.NewParquetWriter(cfg.OutputFolder)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		closeAll := func() error {
			return errors.Join(pw.Close(), st.Close())
		}
		return datagen.MultiSink{pw, st}, closeAll, nil
	}
	st.Close()
	return nil, nil, fmt.Errorf("unsupported output format %q", cfg.OutputFormat)
}
