// Package kde estimates the joint density of (rt, choice) from simulated
// samples with a Gaussian kernel in log-RT space.
//
// For each choice c with n_c decided samples, the density at rt > 0 is
//
//	f(rt, c) = p_c * (1 / (n_c h_c)) * sum_i phi((log rt - log rt_i) / h_c) / rt
//
// where p_c is the share of all samples (omissions included) that chose c
// and h_c is Silverman's bandwidth on the log RTs. The densities over all
// choices therefore integrate to one minus the omission rate.
package kde

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultCutoff is the log-likelihood assigned to impossible observations.
const DefaultCutoff = -66.77497

// minBandwidth keeps degenerate choices (identical RTs) from collapsing
// the kernel to a point mass.
const minBandwidth = 1e-3

// kernelReach bounds the kernel support in bandwidths.
const kernelReach = 8.0

// Options tunes the estimator.
type Options struct {
	// Cutoff is the floor of LogLikelihood (negative_rt_cutoff).
	Cutoff float64

	// Bandwidth overrides Silverman's rule when positive.
	Bandwidth float64
}

// Estimator is an immutable log-space KDE over (rt, choice).
// Safe for concurrent reads.
type Estimator struct {
	cutoff  float64
	choices []int
	comps   map[int]*component
}

type component struct {
	weight float64
	bw     float64
	logRTs []float64 // sorted ascending
}

// New builds an estimator from paired rts and choices. Samples with rt <= 0
// (including omissions) contribute to the total count but not to any
// density component.
func New(rts []float64, choices []int, possible []int, opts Options) *Estimator {
	if opts.Cutoff == 0 {
		opts.Cutoff = DefaultCutoff
	}
	e := &Estimator{
		cutoff:  opts.Cutoff,
		choices: slices.Clone(possible),
		comps:   make(map[int]*component, len(possible)),
	}

	byChoice := make(map[int][]float64, len(possible))
	for i, rt := range rts {
		if rt > 0 {
			byChoice[choices[i]] = append(byChoice[choices[i]], math.Log(rt))
		}
	}

	total := float64(len(rts))
	for _, c := range possible {
		logs := byChoice[c]
		if len(logs) == 0 {
			continue
		}
		sort.Float64s(logs)
		bw := opts.Bandwidth
		if bw <= 0 {
			bw = silverman(logs)
		}
		e.comps[c] = &component{
			weight: float64(len(logs)) / total,
			bw:     bw,
			logRTs: logs,
		}
	}
	return e
}

// silverman returns 0.9 * min(sd, IQR/1.34) * n^(-1/5) for sorted x.
func silverman(sorted []float64) float64 {
	n := float64(len(sorted))
	if len(sorted) < 2 {
		return minBandwidth
	}
	sd := math.Sqrt(stat.Variance(sorted, nil))
	iqr := stat.Quantile(0.75, stat.Empirical, sorted, nil) - stat.Quantile(0.25, stat.Empirical, sorted, nil)
	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	bw := 0.9 * spread * math.Pow(n, -0.2)
	if !(bw > minBandwidth) {
		return minBandwidth
	}
	return bw
}

// Cutoff returns the log-likelihood floor.
func (e *Estimator) Cutoff() float64 { return e.cutoff }

// ChoiceProbability returns the share of samples that chose c.
func (e *Estimator) ChoiceProbability(c int) float64 {
	if comp, ok := e.comps[c]; ok {
		return comp.weight
	}
	return 0
}

// LogLikelihood returns log f(rt, c), floored at the cutoff.
func (e *Estimator) LogLikelihood(rt float64, c int) float64 {
	comp, ok := e.comps[c]
	if !ok || !(rt > 0) {
		return e.cutoff
	}

	x := math.Log(rt)
	lo := sort.SearchFloat64s(comp.logRTs, x-kernelReach*comp.bw)
	sum := 0.0
	for i := lo; i < len(comp.logRTs); i++ {
		u := (x - comp.logRTs[i]) / comp.bw
		if u < -kernelReach {
			break
		}
		sum += math.Exp(-0.5 * u * u)
	}
	if sum == 0 {
		return e.cutoff
	}

	n := float64(len(comp.logRTs))
	logDensity := math.Log(sum) - math.Log(n*comp.bw*math.Sqrt(2*math.Pi)) - x
	ll := math.Log(comp.weight) + logDensity
	if math.IsNaN(ll) || ll < e.cutoff {
		return e.cutoff
	}
	return ll
}

// Sample draws n (rt, choice) pairs from the estimate. Choices are drawn in
// proportion to their weights renormalized over decided samples.
// Returns nil slices when no choice has a component.
func (e *Estimator) Sample(rng *rand.Rand, n int) ([]float64, []int) {
	var support []int
	var cum []float64
	total := 0.0
	for _, c := range e.choices {
		if comp, ok := e.comps[c]; ok {
			total += comp.weight
			support = append(support, c)
			cum = append(cum, total)
		}
	}
	if len(support) == 0 {
		return nil, nil
	}

	rts := make([]float64, n)
	choices := make([]int, n)
	for i := 0; i < n; i++ {
		u := rng.Float64() * total
		k := sort.SearchFloat64s(cum, u)
		if k >= len(support) {
			k = len(support) - 1
		}
		comp := e.comps[support[k]]
		center := comp.logRTs[rng.IntN(len(comp.logRTs))]
		rts[i] = math.Exp(center + comp.bw*rng.NormFloat64())
		choices[i] = support[k]
	}
	return rts, choices
}
