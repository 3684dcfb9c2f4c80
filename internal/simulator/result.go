package simulator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// OmissionRT marks a sample that did not reach a boundary before MaxT.
const OmissionRT = -999.0

// Result holds one simulation batch.
type Result struct {
	RTs      []float64 `json:"rts"`
	Choices  []int     `json:"choices"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata records how a Result was produced.
type Metadata struct {
	Model           string             `json:"model"`
	Simulator       string             `json:"simulator"`
	BoundaryFn      string             `json:"boundary_fn"`
	Theta           map[string]float64 `json:"theta"`
	DeltaT          float64            `json:"delta_t"`
	MaxT            float64            `json:"max_t"`
	S               float64            `json:"s"`
	NSamples        int                `json:"n_samples"`
	Seed            uint64             `json:"seed"`
	PossibleChoices []int              `json:"possible_choices"`

	// Trajectory is the evidence path of the first sample, one row per time
	// step and one column per accumulator.
	Trajectory [][]float64 `json:"trajectory,omitempty"`

	// Boundary is the boundary value at every grid step up to MaxT.
	Boundary []float64 `json:"boundary,omitempty"`
}

// Summary aggregates a Result per choice.
type Summary struct {
	NSamples     int             `json:"n_samples"`
	Omissions    int             `json:"omissions"`
	OmissionRate float64         `json:"omission_rate"`
	Choices      []ChoiceSummary `json:"choices"`
}

// ChoiceSummary describes responses for a single choice.
// MeanRT and StdRT are NaN-free: both are zero when Count is zero.
type ChoiceSummary struct {
	Choice     int     `json:"choice"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
	MeanRT     float64 `json:"mean_rt"`
	StdRT      float64 `json:"std_rt"`
}

// Valid reports whether sample i reached a boundary.
func (r *Result) Valid(i int) bool {
	return r.RTs[i] != OmissionRT
}

// RTsForChoice returns the non-omitted RTs with the given choice.
func (r *Result) RTsForChoice(choice int) []float64 {
	var out []float64
	for i, c := range r.Choices {
		if c == choice && r.Valid(i) {
			out = append(out, r.RTs[i])
		}
	}
	return out
}

// Summary computes per-choice counts, proportions and RT moments.
func (r *Result) Summary() Summary {
	s := Summary{NSamples: len(r.RTs)}
	for i := range r.RTs {
		if !r.Valid(i) {
			s.Omissions++
		}
	}
	if s.NSamples > 0 {
		s.OmissionRate = float64(s.Omissions) / float64(s.NSamples)
	}

	for _, c := range r.Metadata.PossibleChoices {
		rts := r.RTsForChoice(c)
		cs := ChoiceSummary{Choice: c, Count: len(rts)}
		if s.NSamples > 0 {
			cs.Proportion = float64(cs.Count) / float64(s.NSamples)
		}
		if cs.Count > 0 {
			cs.MeanRT = stat.Mean(rts, nil)
		}
		if cs.Count > 1 {
			cs.StdRT = math.Sqrt(stat.Variance(rts, nil))
		}
		s.Choices = append(s.Choices, cs)
	}
	return s
}
