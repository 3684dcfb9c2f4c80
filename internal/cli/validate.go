package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/datagen"
	"github.com/roach88/ssmgen/internal/model"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Config string // generation config to check
}

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Source  string `json:"source"` // "models" or "config"
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Models []string          `json:"models,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [models-dir]",
		Short: "Validate model definitions and generation configs",
		Long: `Validate CUE model definitions and/or a YAML generation config without
simulating anything.

Every problem is reported, not just the first. Config model names are
checked against the built-in models plus those in models-dir.

Examples:
  ssmgen validate ./models
  ssmgen validate --config generate.yaml
  ssmgen validate ./models --config generate.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.ModelsDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "generation config file (YAML)")

	return cmd
}

func runValidate(opts *ValidateOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if modelsDir == "" && opts.Config == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, errors.New("nothing to validate: pass a models directory or --config"))
	}

	result := ValidationResult{Valid: true}
	var known map[string]bool

	if modelsDir != "" {
		loadResult, loadErrors := LoadModels(modelsDir, LoadModeCollectAll)
		if loadResult == nil {
			// Directory-level problems are command errors, not invalid models.
			code, message := parseCompileError(loadErrors[0])
			_ = formatter.Error(code, message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
		}
		formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelsDir)
		for _, err := range loadErrors {
			result.add(modelIssue(err))
		}
		known = make(map[string]bool)
		for _, cfg := range loadResult.Models {
			formatter.VerboseLog("Validated model: %s", cfg.Name)
			result.Models = append(result.Models, cfg.Name)
			known[cfg.Name] = true
		}
	}

	if opts.Config != "" {
		formatter.VerboseLog("Validating config: %s", opts.Config)
		for _, issue := range validateConfigFile(opts.Config, known) {
			result.add(issue)
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintln(w, "✓ All definitions valid")
	})
}

func (r *ValidationResult) add(issue ValidationIssue) {
	r.Valid = false
	r.Errors = append(r.Errors, issue)
}

func modelIssue(err error) ValidationIssue {
	issue := ValidationIssue{Source: "models"}
	issue.Code, issue.Message = parseCompileError(err)
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}

// validateConfigFile checks a generation config, including that its models
// are built in or listed in extra.
func validateConfigFile(path string, extra map[string]bool) []ValidationIssue {
	cfg, err := datagen.LoadConfig(path)
	if err != nil {
		return configIssues(err)
	}

	builtin := model.NewRegistry()
	var issues []ValidationIssue
	for _, name := range cfg.Models {
		if _, ok := builtin.Lookup(name); !ok && !extra[name] {
			issues = append(issues, ValidationIssue{
				Source:  "config",
				Code:    ErrCodeUnknownModel,
				Message: fmt.Sprintf("models: unknown model %q", name),
			})
		}
	}
	return issues
}

// configIssues flattens a joined config error into one issue per field.
func configIssues(err error) []ValidationIssue {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	issues := make([]ValidationIssue, 0, len(errs))
	for _, e := range errs {
		issues = append(issues, ValidationIssue{Source: "config", Code: ErrCodeConfig, Message: e.Error()})
	}
	return issues
}

// outputValidationErrors outputs every validation issue.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", issue.Source, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
