package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/canon"
)

// VersionInfo is printed by the version command.
type VersionInfo struct {
	Generator string `json:"generator_version"`
	Schema    string `json:"schema_version"`
	Go        string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print generator and schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Generator: canon.GeneratorVersion,
				Schema:    canon.SchemaVersion,
				Go:        runtime.Version(),
			}
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Render(info, func(w io.Writer) {
				fmt.Fprintf(w, "ssmgen %s (schema %s, %s)\n", info.Generator, info.Schema, info.Go)
			})
		},
	}
}
