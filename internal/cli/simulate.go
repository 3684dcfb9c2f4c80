package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/simulator"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Theta      map[string]string
	NSamples   int
	Seed       uint64
	DeltaT     float64
	MaxT       float64
	S          float64
	Strict     bool
	Trajectory bool
	Raw        bool
}

// SimulateOutput is the JSON payload of the simulate command.
type SimulateOutput struct {
	Model    string              `json:"model"`
	Theta    map[string]float64  `json:"theta"`
	Summary  simulator.Summary   `json:"summary"`
	Metadata *simulator.Metadata `json:"metadata,omitempty"`
	RTs      []float64           `json:"rts,omitempty"`
	Choices  []int               `json:"choices,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <model>",
		Short: "Simulate a model at one parameter vector",
		Long: `Simulate n trials of a model and summarise choices and response times.

Parameters not given with --theta take the model's defaults.

Examples:
  ssmgen simulate ddm --theta v=1,a=1.5 -n 2000
  ssmgen simulate angle --theta theta=0.4 --seed 7 --format json --raw`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringToStringVar(&opts.Theta, "theta", nil, "parameter values as name=value pairs")
	cmd.Flags().IntVarP(&opts.NSamples, "n-samples", "n", 1000, "number of trials")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&opts.DeltaT, "delta-t", simulator.DefaultDeltaT, "integration step in seconds")
	cmd.Flags().Float64Var(&opts.MaxT, "max-t", simulator.DefaultMaxT, "maximum trial duration in seconds")
	cmd.Flags().Float64Var(&opts.S, "s", simulator.DefaultS, "diffusion noise standard deviation")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject parameters outside the model bounds")
	cmd.Flags().BoolVar(&opts.Trajectory, "trajectory", false, "include the first trial's evidence path (json only)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "include raw rts and choices (json only)")

	return cmd
}

func runSimulate(opts *SimulateOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, err := buildRegistry(opts.ModelsDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err, ErrCodeGeneric), err)
	}
	cfg, ok := reg.Lookup(name)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownModel, fmt.Errorf("unknown model %q (have %v)", name, reg.Names()))
	}

	values, err := parseTheta(opts.Theta)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadTheta, err)
	}
	theta, err := cfg.ThetaFromMap(values)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadTheta, err)
	}

	formatter.VerboseLog("Simulating %s with %d trials: %v", name, opts.NSamples, cfg.ThetaMap(theta))
	res, err := simulator.SimulateConfig(cmd.Context(), cfg, theta, opts.NSamples, simulator.Options{
		DeltaT:           opts.DeltaT,
		MaxT:             opts.MaxT,
		S:                opts.S,
		Seed:             opts.Seed,
		StrictBounds:     opts.Strict,
		ReturnTrajectory: opts.Trajectory,
	})
	if err != nil {
		code := ErrCodeSimulation
		if simulator.IsCode(err, simulator.ErrCodeBadTheta) || simulator.IsCode(err, simulator.ErrCodeOutOfBounds) {
			code = ErrCodeBadTheta
		}
		return formatter.Fail(ExitCommandError, code, err)
	}

	out := SimulateOutput{
		Model:   name,
		Theta:   res.Metadata.Theta,
		Summary: res.Summary(),
	}
	if opts.Trajectory {
		out.Metadata = &res.Metadata
	}
	if opts.Raw {
		out.RTs, out.Choices = res.RTs, res.Choices
	}
	return formatter.Render(out, func(w io.Writer) { printSummary(w, cfg.Params, out) })
}

// parseTheta converts --theta pairs to numbers.
func parseTheta(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("theta %s: %q is not a number", k, v)
		}
		out[k] = f
	}
	return out, nil
}

func printSummary(w io.Writer, params []string, out SimulateOutput) {
	fmt.Fprintf(w, "Model: %s\n", out.Model)
	fmt.Fprint(w, "Theta:")
	for _, p := range params {
		fmt.Fprintf(w, " %s=%g", p, out.Theta[p])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Trials: %d (omissions: %d, %.2f%%)\n\n", out.Summary.NSamples, out.Summary.Omissions, 100*out.Summary.OmissionRate)
	fmt.Fprintf(w, "  %-8s %8s %10s %10s %10s\n", "choice", "count", "p", "mean_rt", "std_rt")
	for _, cs := range out.Summary.Choices {
		fmt.Fprintf(w, "  %-8d %8d %10.4f %10.4f %10.4f\n", cs.Choice, cs.Count, cs.Proportion, cs.MeanRT, cs.StdRT)
	}
}
