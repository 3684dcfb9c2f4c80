package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ssmgen/internal/compiler"
	"github.com/roach88/ssmgen/internal/model"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the models compiled from a directory.
type LoadResult struct {
	Models    []*model.Config
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads and compiles the CUE model definitions in dir.
// Compiled models are also run through compiler.Validate; validation
// errors count as load errors.
func LoadModels(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no models found in definitions"}}
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", err)}}
	}

	for iter.Next() {
		cfg, compileErr := compiler.CompileModel(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "model."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		if verrs := compiler.Validate(cfg); len(verrs) > 0 {
			for _, v := range verrs {
				errs = append(errs, &LoadError{
					Code:    v.Code,
					Message: fmt.Sprintf("model.%s.%s: %s", cfg.Name, v.Field, v.Message),
					Pos:     iter.Value().Pos(),
				})
			}
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Models = append(result.Models, cfg)
	}

	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found in definitions"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// buildRegistry returns the built-in registry extended with the models in
// dir. An empty dir yields the built-ins only.
func buildRegistry(dir string) (*model.Registry, error) {
	reg := model.NewRegistry()
	if dir == "" {
		return reg, nil
	}
	result, errs := LoadModels(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	for _, cfg := range result.Models {
		if err := reg.Register(cfg); err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
	}
	return reg, nil
}

// loadErrorCode returns the code carried by a LoadError, or def.
func loadErrorCode(err error, def string) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return def
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeUnknownModel = "E010" // Model not registered
	ErrCodeBadTheta     = "E011" // Parameter vector rejected
	ErrCodeSimulation   = "E012" // Simulation failed
	ErrCodeConfig       = "E013" // Generation config invalid
	ErrCodeStore        = "E014" // Database error
	ErrCodeGeneration   = "E015" // Data generation failed
	ErrCodeScenario     = "E016" // Scenario could not run
	ErrCodeExport       = "E017" // Export failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "simulator":
		return compiler.ErrUnknownSimulator
	case field == "params":
		return compiler.ErrNoParams
	case field == "nchoices" || field == "choices":
		return compiler.ErrInvalidChoices
	case field == "boundary":
		return compiler.ErrUnknownBoundary
	case strings.HasPrefix(field, "params."):
		return compiler.ErrInvalidBounds
	default:
		return ErrCodeGeneric
	}
}
