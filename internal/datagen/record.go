package datagen

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/roach88/ssmgen/internal/kde"
	"github.com/roach88/ssmgen/internal/model"
	"github.com/roach88/ssmgen/internal/simulator"
)

// Record is the training data of one accepted parameter set.
type Record struct {
	Index    int       `json:"index"`
	ID       string    `json:"id"`
	Round    int       `json:"round"`
	Theta    []float64 `json:"theta"`
	Attempts int       `json:"attempts"`

	// Data holds one feature row per training sample, laid out as
	// described by FeatureNames.
	Data   [][]float32 `json:"data"`
	Labels []float32   `json:"labels"`

	// ChoiceProbabilities are the simulated choice shares in the model's
	// choice order; OmissionProbability is the share of omissions.
	ChoiceProbabilities []float32 `json:"choice_probabilities"`
	OmissionProbability float32   `json:"omission_probability"`

	// Histogram holds per-choice RT bin shares over [0, max_t] when nbins
	// is positive.
	Histogram [][]float32 `json:"histogram,omitempty"`

	Stats []ChoiceStats `json:"stats"`
}

// Rejected is a parameter-set draw discarded by the filters.
type Rejected struct {
	Index   int           `json:"index"`
	Attempt int           `json:"attempt"`
	Theta   []float64     `json:"theta"`
	Stats   []ChoiceStats `json:"stats"`
}

// FeatureNames returns the column names of a Record's Data rows.
func FeatureNames(cfg *Config, m *model.Config) []string {
	names := append([]string(nil), m.Params...)
	if cfg.BinPointwise {
		names = append(names, "rt_bin")
	} else {
		names = append(names, "rt")
	}
	if cfg.SeparateResponseChannels {
		for i := range m.Choices {
			names = append(names, "choice_"+strconv.Itoa(i))
		}
	} else {
		names = append(names, "choice")
	}
	return names
}

// features lays out training rows for one model under one config.
type features struct {
	cfg *Config
	m   *model.Config
}

func (f features) row(theta []float64, rt float64, choice int) []float32 {
	row := make([]float32, 0, len(theta)+1+len(f.m.Choices))
	for _, v := range theta {
		row = append(row, float32(v))
	}
	if f.cfg.BinPointwise {
		row = append(row, float32(f.bin(rt)))
	} else {
		row = append(row, float32(rt))
	}
	if f.cfg.SeparateResponseChannels {
		for _, c := range f.m.Choices {
			if c == choice {
				row = append(row, 1)
			} else {
				row = append(row, 0)
			}
		}
	} else {
		row = append(row, float32(choice))
	}
	return row
}

// bin maps rt to its histogram bin over [0, max_t]; rt <= 0 maps to -1.
func (f features) bin(rt float64) int {
	if rt <= 0 {
		return -1
	}
	k := int(rt / (f.cfg.MaxT / float64(f.cfg.NBins)))
	return min(k, f.cfg.NBins-1)
}

// histogram returns per-choice bin shares of all samples in res.
func (f features) histogram(res *simulator.Result) [][]float32 {
	h := make([][]float32, len(f.m.Choices))
	for i := range h {
		h[i] = make([]float32, f.cfg.NBins)
	}
	pos := make(map[int]int, len(f.m.Choices))
	for i, c := range f.m.Choices {
		pos[c] = i
	}
	n := float32(len(res.RTs))
	for i, rt := range res.RTs {
		if !res.Valid(i) {
			continue
		}
		k, ok := pos[res.Choices[i]]
		if !ok {
			continue
		}
		h[k][f.bin(rt)] += 1 / n
	}
	return h
}

// mixtureCounts splits n rows across the kde, unif_up and unif_down
// sources. Rounding remainders go to unif_down.
func mixtureCounts(n int, p []float64) (nKDE, nUp, nDown int) {
	nKDE = int(math.Round(float64(n) * p[0]))
	nUp = int(math.Round(float64(n) * p[1]))
	if nKDE > n {
		nKDE = n
	}
	if nKDE+nUp > n {
		nUp = n - nKDE
	}
	return nKDE, nUp, n - nKDE - nUp
}

// label builds the labeled training rows and summary fields of an accepted
// simulation.
func (f features) label(rng *rand.Rand, theta []float64, res *simulator.Result) *Record {
	est := kde.New(res.RTs, res.Choices, f.m.Choices, kde.Options{Cutoff: f.cfg.NegativeRTCutoff})
	n := f.cfg.NTrainingSamplesByParameterSet
	nKDE, nUp, nDown := mixtureCounts(n, f.cfg.KDEDataMixtureProbabilities)

	rec := &Record{
		Theta:  append([]float64(nil), theta...),
		Data:   make([][]float32, 0, n),
		Labels: make([]float32, 0, n),
	}
	add := func(rt float64, c int, ll float64) {
		rec.Data = append(rec.Data, f.row(theta, rt, c))
		rec.Labels = append(rec.Labels, float32(ll))
	}

	rts, chs := est.Sample(rng, nKDE)
	if rts == nil {
		// No decided samples to resample from; cover the range uniformly.
		nUp += nKDE
	}
	for i := range rts {
		add(rts[i], chs[i], est.LogLikelihood(rts[i], chs[i]))
	}
	for i := 0; i < nUp; i++ {
		rt := rng.Float64() * f.cfg.MaxT
		c := f.m.Choices[rng.IntN(len(f.m.Choices))]
		add(rt, c, est.LogLikelihood(rt, c))
	}
	for i := 0; i < nDown; i++ {
		rt := -rng.Float64()
		c := f.m.Choices[rng.IntN(len(f.m.Choices))]
		add(rt, c, f.cfg.NegativeRTCutoff)
	}

	sum := res.Summary()
	for _, cs := range sum.Choices {
		rec.ChoiceProbabilities = append(rec.ChoiceProbabilities, float32(cs.Proportion))
	}
	rec.OmissionProbability = float32(sum.OmissionRate)
	if f.cfg.NBins > 0 {
		rec.Histogram = f.histogram(res)
	}
	return rec
}
