// Package boundary defines the decision-boundary shapes used by the
// simulator. A shape maps elapsed decision time and the base separation a to
// the absolute distance of the boundary from zero.
package boundary

import (
	"math"
	"sort"
)

// Func evaluates a boundary at time t for base separation a and the
// shape-specific parameters p (in the order of Shape.Params).
type Func func(t, a float64, p []float64) float64

// Shape describes a named boundary function.
type Shape struct {
	Name   string
	Params []string
	Fn     Func
}

// Names of built-in shapes.
const (
	Constant   = "constant"
	Angle      = "angle"
	WeibullCDF = "weibull_cdf"
)

var shapes = map[string]Shape{
	Constant: {
		Name: Constant,
		Fn:   constant,
	},
	Angle: {
		Name:   Angle,
		Params: []string{"theta"},
		Fn:     angle,
	},
	WeibullCDF: {
		Name:   WeibullCDF,
		Params: []string{"alpha", "beta"},
		Fn:     weibullCDF,
	},
}

// Lookup returns the shape registered under name.
func Lookup(name string) (Shape, bool) {
	s, ok := shapes[name]
	return s, ok
}

// Names returns all shape names in sorted order.
func Names() []string {
	names := make([]string, 0, len(shapes))
	for n := range shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func constant(_, a float64, _ []float64) float64 {
	return a
}

// angle collapses linearly at angle theta (radians), floored at zero.
func angle(t, a float64, p []float64) float64 {
	return math.Max(a-t*math.Tan(p[0]), 0)
}

// weibullCDF scales a by the Weibull survival function exp(-(t/beta)^alpha).
func weibullCDF(t, a float64, p []float64) float64 {
	alpha, beta := p[0], p[1]
	return a * math.Exp(-math.Pow(t/beta, alpha))
}

// Grid evaluates shape on t = 0, dt, 2dt, ... up to and including maxT.
func Grid(s Shape, a float64, p []float64, dt, maxT float64) []float64 {
	n := int(math.Floor(maxT/dt+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Fn(float64(i)*dt, a, p)
	}
	return out
}
