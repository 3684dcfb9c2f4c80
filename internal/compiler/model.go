package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/ssmgen/internal/boundary"
	"github.com/roach88/ssmgen/internal/model"
)

// CompileModel parses a CUE value into a model.Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: my_ddm: { ... }`)
//	cfg, err := CompileModel(v.LookupPath(cue.ParsePath("model.my_ddm")))
func CompileModel(v cue.Value) (*model.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &model.Config{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		cfg.Name = labels[len(labels)-1].String()
	}
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		cfg.Name = name
	}

	simulator, ok, err := optionalString(v, "simulator")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CompileError{Field: "simulator", Message: "simulator is required", Pos: v.Pos()}
	}
	cfg.Simulator = simulator

	cfg.Boundary = boundary.Constant
	if name, ok, err := optionalString(v, "boundary"); err != nil {
		return nil, err
	} else if ok {
		cfg.Boundary = name
	}
	if shape, ok := boundary.Lookup(cfg.Boundary); ok && len(shape.Params) > 0 {
		cfg.BoundaryParams = append([]string(nil), shape.Params...)
	}

	if err := parseParams(v, cfg); err != nil {
		return nil, err
	}

	if cfg.HDDMInclude, err = optionalStrings(v, "hddm_include"); err != nil {
		return nil, err
	}

	if err := parseChoices(v, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseParams reads the params struct in declaration order.
func parseParams(v cue.Value, cfg *model.Config) error {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return &CompileError{Field: "params", Message: "params are required", Pos: v.Pos()}
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()

		low, err := requiredFloat(pv, "low", "params."+name)
		if err != nil {
			return err
		}
		high, err := requiredFloat(pv, "high", "params."+name)
		if err != nil {
			return err
		}
		def := (low + high) / 2
		if dv := pv.LookupPath(cue.ParsePath("default")); dv.Exists() {
			if def, err = dv.Float64(); err != nil {
				return formatCUEError(err)
			}
		}

		cfg.Params = append(cfg.Params, name)
		cfg.ParamBoundsLow = append(cfg.ParamBoundsLow, low)
		cfg.ParamBoundsHigh = append(cfg.ParamBoundsHigh, high)
		cfg.DefaultParams = append(cfg.DefaultParams, def)
	}
	cfg.NParams = len(cfg.Params)
	return nil
}

// parseChoices reads nchoices/choices, defaulting per simulator kind.
func parseChoices(v cue.Value, cfg *model.Config) error {
	choicesVal := v.LookupPath(cue.ParsePath("choices"))
	if choicesVal.Exists() {
		iter, err := choicesVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			c, err := iter.Value().Int64()
			if err != nil {
				return formatCUEError(err)
			}
			cfg.Choices = append(cfg.Choices, int(c))
		}
	}

	cfg.NChoices = len(cfg.Choices)
	if nv := v.LookupPath(cue.ParsePath("nchoices")); nv.Exists() {
		n, err := nv.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		cfg.NChoices = int(n)
	}

	if cfg.Choices != nil {
		return nil
	}
	switch {
	case model.TwoChoice(cfg.Simulator):
		if cfg.NChoices == 0 {
			cfg.NChoices = 2
		}
		cfg.Choices = model.KernelChoices(cfg.Simulator, 2)
	case cfg.NChoices > 0:
		cfg.Choices = model.KernelChoices(cfg.Simulator, cfg.NChoices)
	default:
		return &CompileError{
			Field:   "nchoices",
			Message: fmt.Sprintf("simulator %s needs nchoices or choices", cfg.Simulator),
			Pos:     v.Pos(),
		}
	}
	return nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredFloat(v cue.Value, field, context string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   context + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}
