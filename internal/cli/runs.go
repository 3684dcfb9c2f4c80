package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/store"
)

// RunsOptions holds flags shared by the runs subcommands.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunDetail is the payload of runs show.
type RunDetail struct {
	Run             *datagen.RunInfo `json:"run"`
	CompletedRounds []int            `json:"completed_rounds"`
	Accepted        int              `json:"accepted"`
	Rejected        int              `json:"rejected"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect generation runs",
	}
	defaultDB := filepath.Join(datagen.DefaultConfig().OutputFolder, DatabaseName)
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaultDB, "path to the run database")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show a run's config and progress",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(opts, args[0], cmd)
		},
	})
	return cmd
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %s", path)
	}
	return store.Open(path)
}

func runRunsList(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return formatter.Render(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs found.")
			return
		}
		fmt.Fprintf(w, "%-36s %-10s %-9s %8s %8s  %s\n", "RUN", "MODEL", "ROUNDS", "ACCEPTED", "REJECTED", "CREATED")
		for _, r := range runs {
			status := fmt.Sprintf("%d/%d", r.CompletedRounds, r.NRounds)
			fmt.Fprintf(w, "%-36s %-10s %-9s %8d %8d  %s\n",
				r.ID, r.Model, status, r.Accepted, r.Rejected, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	})
}

func runRunsShow(opts *RunsOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("run %q not found", runID))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	detail := RunDetail{Run: run}
	if detail.CompletedRounds, err = st.CompletedRounds(ctx, runID); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	summaries, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	for _, sum := range summaries {
		if sum.ID == runID {
			detail.Accepted = sum.Accepted
		}
	}
	if detail.Rejected, err = st.RejectedCount(ctx, runID); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	return formatter.Render(detail, func(w io.Writer) {
		fmt.Fprintf(w, "Run:      %s\n", run.RunID)
		fmt.Fprintf(w, "Model:    %s\n", run.Model)
		fmt.Fprintf(w, "Hash:     %s\n", run.ConfigHash)
		fmt.Fprintf(w, "Rounds:   %d/%d complete\n", len(detail.CompletedRounds), run.NRounds)
		fmt.Fprintf(w, "Accepted: %d\n", detail.Accepted)
		fmt.Fprintf(w, "Rejected: %d\n", detail.Rejected)
		fmt.Fprintf(w, "Features: %v\n", run.FeatureNames)
	})
}
