package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ssmgen/internal/canon"
	"github.com/roach88/ssmgen/internal/compiler"
	"github.com/roach88/ssmgen/internal/model"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledModel is a compiled definition with its content hash.
type CompiledModel struct {
	Hash   string        `json:"hash"`
	Config *model.Config `json:"config"`
}

// CompilationResult holds the compiled models.
type CompilationResult struct {
	Models []CompiledModel `json:"models"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <models-dir>",
		Short: "Compile CUE model definitions to JSON",
		Long: `Compile CUE model definitions to model configs.

Each model is decoded, validated and hashed over its canonical JSON form.
With --output the configs are written as JSON for use by other tools.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadModels(modelsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelsDir)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{}
	for _, cfg := range loadResult.Models {
		formatter.VerboseLog("Compiled model: %s", cfg.Name)
		hash, err := canon.ConfigHash(cfg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("hash model %s: %w", cfg.Name, err))
		}
		result.Models = append(result.Models, CompiledModel{Hash: hash, Config: cfg})
	}

	if opts.Output != "" {
		if err := writeCompiled(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Compiled %d model(s)\n\n", len(result.Models))
		for _, m := range result.Models {
			fmt.Fprintf(w, "  %s: %s, %d param(s), %d choice(s)\n",
				m.Config.Name, m.Config.Simulator, m.Config.NParams, m.Config.NChoices)
		}
		if opts.Output != "" {
			fmt.Fprintf(w, "\nWrote models to %s\n", opts.Output)
		}
	})
}

// outputCompileErrors outputs every load or compile error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i].Code, cliErrors[i].Message = parseCompileError(err)
	}

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for i, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeCompiled writes the compiled models as indented JSON.
func writeCompiled(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling models: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
