package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/model"
)

// ModelInfo is one row of models list.
type ModelInfo struct {
	Name      string   `json:"name"`
	Simulator string   `json:"simulator"`
	Boundary  string   `json:"boundary"`
	Params    []string `json:"params"`
	NChoices  int      `json:"nchoices"`
}

// NewModelsCommand creates the models command group.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and describe registered models",
	}
	cmd.AddCommand(newModelsListCommand(rootOpts))
	cmd.AddCommand(newModelsDescribeCommand(rootOpts))
	return cmd
}

func newModelsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered models",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			reg, err := buildRegistry(rootOpts.ModelsDir)
			if err != nil {
				return formatter.Fail(ExitCommandError, loadErrorCode(err, ErrCodeGeneric), err)
			}

			var infos []ModelInfo
			for _, name := range reg.Names() {
				cfg, _ := reg.Lookup(name)
				infos = append(infos, ModelInfo{
					Name:      cfg.Name,
					Simulator: cfg.Simulator,
					Boundary:  cfg.Boundary,
					Params:    cfg.Params,
					NChoices:  cfg.NChoices,
				})
			}
			return formatter.Render(infos, func(w io.Writer) {
				fmt.Fprintf(w, "%-12s %-14s %-10s %s\n", "NAME", "SIMULATOR", "BOUNDARY", "PARAMS")
				for _, m := range infos {
					fmt.Fprintf(w, "%-12s %-14s %-10s %s\n", m.Name, m.Simulator, m.Boundary, strings.Join(m.Params, ","))
				}
			})
		},
	}
}

func newModelsDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "describe <model>",
		Short:         "Show a model's full configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			reg, err := buildRegistry(rootOpts.ModelsDir)
			if err != nil {
				return formatter.Fail(ExitCommandError, loadErrorCode(err, ErrCodeGeneric), err)
			}
			cfg, ok := reg.Lookup(args[0])
			if !ok {
				return formatter.Fail(ExitCommandError, ErrCodeUnknownModel, fmt.Errorf("unknown model %q (have %v)", args[0], reg.Names()))
			}
			return formatter.Render(cfg, func(w io.Writer) { describeModel(w, cfg) })
		},
	}
}

func describeModel(w io.Writer, cfg *model.Config) {
	fmt.Fprintf(w, "Model:     %s\n", cfg.Name)
	fmt.Fprintf(w, "Simulator: %s\n", cfg.Simulator)
	if len(cfg.BoundaryParams) > 0 {
		fmt.Fprintf(w, "Boundary:  %s (%s)\n", cfg.Boundary, strings.Join(cfg.BoundaryParams, ", "))
	} else {
		fmt.Fprintf(w, "Boundary:  %s\n", cfg.Boundary)
	}
	fmt.Fprintf(w, "Choices:   %v\n", cfg.Choices)
	if len(cfg.HDDMInclude) > 0 {
		fmt.Fprintf(w, "HDDM:      %s\n", strings.Join(cfg.HDDMInclude, ", "))
	}
	fmt.Fprintln(w, "\nParameters:")
	fmt.Fprintf(w, "  %-8s %10s %10s %10s\n", "name", "low", "high", "default")
	for i, p := range cfg.Params {
		fmt.Fprintf(w, "  %-8s %10g %10g %10g\n", p, cfg.ParamBoundsLow[i], cfg.ParamBoundsHigh[i], cfg.DefaultParams[i])
	}
}
