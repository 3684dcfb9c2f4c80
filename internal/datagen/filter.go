package datagen

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/ssmgen/internal/simulator"
)

// minModeSamples is the smallest per-choice count for which the relative
// mode count is computed; smaller samples report zero.
const minModeSamples = 5

// ChoiceStats are the filter statistics of one choice.
type ChoiceStats struct {
	Choice     int     `json:"choice"`
	Count      int     `json:"count"`
	Mode       float64 `json:"mode"`
	ModeCntRel float64 `json:"mode_cnt_rel"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
}

// Stats computes the filter statistics of every possible choice in res.
// A choice with no decided samples reports mode -1, mean -1, std 1 and
// mode_cnt_rel 0.
func Stats(res *simulator.Result) []ChoiceStats {
	out := make([]ChoiceStats, 0, len(res.Metadata.PossibleChoices))
	for _, c := range res.Metadata.PossibleChoices {
		out = append(out, choiceStats(c, res.RTsForChoice(c)))
	}
	return out
}

func choiceStats(c int, rts []float64) ChoiceStats {
	s := ChoiceStats{Choice: c, Count: len(rts)}
	if len(rts) == 0 {
		s.Mode, s.Mean, s.Std = -1, -1, 1
		return s
	}
	mode, count := stat.Mode(rts, nil)
	mean, variance := stat.PopMeanVariance(rts, nil)
	s.Mode = mode
	s.Mean = mean
	s.Std = math.Sqrt(variance)
	if len(rts) >= minModeSamples {
		s.ModeCntRel = count / float64(len(rts))
	}
	return s
}

// Pass reports whether a single choice's statistics satisfy f.
func (f Filters) Pass(s ChoiceStats) bool {
	return s.Mode < f.Mode &&
		s.Mean <= f.MeanRT &&
		s.Std > f.Std &&
		s.ModeCntRel < f.ModeCntRel &&
		s.Count > f.ChoiceCnt
}

// Keep reports whether every choice passes.
func (f Filters) Keep(stats []ChoiceStats) bool {
	for _, s := range stats {
		if !f.Pass(s) {
			return false
		}
	}
	return true
}
