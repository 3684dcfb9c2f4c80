package harness

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/ssmgen/internal/simulator"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// observe computes the statistic an assertion checks.
func observe(res *simulator.Result, sum simulator.Summary, a Assertion) (float64, error) {
	switch a.Type {
	case AssertChoiceProportion:
		cs, ok := choiceSummary(sum, *a.Choice)
		if !ok {
			return 0, fmt.Errorf("choice %d is not a possible choice (have %v)", *a.Choice, res.Metadata.PossibleChoices)
		}
		return cs.Proportion, nil

	case AssertMeanRT:
		rts := decidedRTs(res, a.Choice)
		if len(rts) == 0 {
			return math.NaN(), nil
		}
		return stat.Mean(rts, nil), nil

	case AssertOmissionRate:
		return sum.OmissionRate, nil

	case AssertCount:
		return float64(len(decidedRTs(res, a.Choice))), nil

	case AssertMinRT:
		rts := decidedRTs(res, nil)
		if len(rts) == 0 {
			return math.NaN(), nil
		}
		return floats.Min(rts), nil
	}
	return 0, fmt.Errorf("unknown assertion type %q", a.Type)
}

func choiceSummary(sum simulator.Summary, c int) (simulator.ChoiceSummary, bool) {
	for _, cs := range sum.Choices {
		if cs.Choice == c {
			return cs, true
		}
	}
	return simulator.ChoiceSummary{}, false
}

// decidedRTs returns the non-omitted RTs, restricted to choice when set.
func decidedRTs(res *simulator.Result, choice *int) []float64 {
	if choice != nil {
		return res.RTsForChoice(*choice)
	}
	var out []float64
	for i, rt := range res.RTs {
		if res.Valid(i) {
			out = append(out, rt)
		}
	}
	return out
}

// check compares an observed value with the assertion's expectation.
func check(a Assertion, got float64) error {
	var want []string
	ok := !math.IsNaN(got)
	if a.Expect != nil {
		want = append(want, fmt.Sprintf("%g ± %g", *a.Expect, a.Tolerance))
		ok = ok && math.Abs(got-*a.Expect) <= a.Tolerance
	}
	if a.Min != nil {
		want = append(want, fmt.Sprintf(">= %g", *a.Min))
		ok = ok && got >= *a.Min
	}
	if a.Max != nil {
		want = append(want, fmt.Sprintf("<= %g", *a.Max))
		ok = ok && got <= *a.Max
	}
	if ok {
		return nil
	}

	label := a.Type
	if a.Choice != nil {
		label = fmt.Sprintf("%s (choice %d)", a.Type, *a.Choice)
	}
	return &AssertionError{
		Type:     label,
		Expected: strings.Join(want, " and "),
		Actual:   fmt.Sprintf("%g", got),
	}
}
