package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/ssmgen/internal/boundary"
	"github.com/roach88/ssmgen/internal/model"
)

// Validation error codes (E200-E299)
const (
	ErrModelName         = "E200" // name is required
	ErrUnknownSimulator  = "E201" // simulator kernel not known
	ErrKernelParams      = "E202" // kernel parameter missing from params
	ErrInvalidBounds     = "E203" // low must be < high
	ErrDefaultOutOfRange = "E204" // default outside its bounds
	ErrUnknownBoundary   = "E205" // unknown boundary shape
	ErrInvalidChoices    = "E206" // nchoices/choices inconsistent
	ErrUnknownHDDMParam  = "E207" // hddm_include names an unknown param
	ErrDuplicateParam    = "E208" // parameter declared twice
	ErrNoParams          = "E209" // at least one parameter required
)

// ValidationError represents a model definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled model definition.
// Returns all errors found (does not fail-fast). A config with no errors
// also passes model.Config.Validate.
func Validate(cfg *model.Config) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if cfg.Name == "" {
		add(ErrModelName, "name", "name is required")
	}
	if len(cfg.Params) == 0 {
		add(ErrNoParams, "params", "at least one parameter is required")
	}

	seen := make(map[string]bool, len(cfg.Params))
	for i, p := range cfg.Params {
		field := "params." + p
		if seen[p] {
			add(ErrDuplicateParam, field, "declared more than once")
		}
		seen[p] = true
		if i >= len(cfg.ParamBoundsLow) || i >= len(cfg.ParamBoundsHigh) || i >= len(cfg.DefaultParams) {
			add(ErrInvalidBounds, field, "bounds and default are required")
			continue
		}
		low, high, def := cfg.ParamBoundsLow[i], cfg.ParamBoundsHigh[i], cfg.DefaultParams[i]
		if !(low < high) {
			add(ErrInvalidBounds, field, "low must be < high (got [%g, %g])", low, high)
			continue
		}
		if def < low || def > high {
			add(ErrDefaultOutOfRange, field, "default %g outside [%g, %g]", def, low, high)
		}
	}

	required, ok := model.KernelParams(cfg.Simulator, cfg.NChoices)
	if !ok {
		add(ErrUnknownSimulator, "simulator", "unknown simulator %q", cfg.Simulator)
	} else {
		for _, p := range required {
			if !seen[p] {
				add(ErrKernelParams, "params", "simulator %s requires parameter %q", cfg.Simulator, p)
			}
		}
	}

	if cfg.NChoices < 2 {
		add(ErrInvalidChoices, "nchoices", "must be >= 2, got %d", cfg.NChoices)
	}
	if len(cfg.Choices) != cfg.NChoices {
		add(ErrInvalidChoices, "choices", "expected %d choices, got %d", cfg.NChoices, len(cfg.Choices))
	}
	if ok && model.TwoChoice(cfg.Simulator) && cfg.NChoices != 2 {
		add(ErrInvalidChoices, "nchoices", "simulator %s produces exactly 2 choices", cfg.Simulator)
	} else if ok && len(cfg.Choices) == cfg.NChoices {
		if want := model.KernelChoices(cfg.Simulator, cfg.NChoices); !slices.Equal(cfg.Choices, want) {
			add(ErrInvalidChoices, "choices", "simulator %s reports choices %v, got %v", cfg.Simulator, want, cfg.Choices)
		}
	}

	shape, known := boundary.Lookup(cfg.Boundary)
	switch {
	case !known:
		add(ErrUnknownBoundary, "boundary", "unknown boundary %q (known: %v)", cfg.Boundary, boundary.Names())
	case !slices.Equal(shape.Params, cfg.BoundaryParams):
		add(ErrUnknownBoundary, "boundary", "boundary %s takes params %v, got %v", cfg.Boundary, shape.Params, cfg.BoundaryParams)
	default:
		for _, p := range shape.Params {
			if !seen[p] {
				add(ErrUnknownBoundary, "params", "boundary %s requires parameter %q", cfg.Boundary, p)
			}
		}
	}

	for _, p := range cfg.HDDMInclude {
		if !seen[p] {
			add(ErrUnknownHDDMParam, "hddm_include", "parameter %q is not declared", p)
		}
	}

	return errs
}
