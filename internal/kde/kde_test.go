package kde

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lognormalSamples draws n RTs with log(rt) ~ N(mu, sigma).
func lognormalSamples(rng *rand.Rand, n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(mu + sigma*rng.NormFloat64())
	}
	return out
}

func TestLogLikelihoodApproximatesLognormal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	rts := lognormalSamples(rng, 5000, 0, 0.5)
	choices := make([]int, len(rts))
	for i := range choices {
		choices[i] = 1
	}

	e := New(rts, choices, []int{-1, 1}, Options{})

	// True lognormal log-density at rt = 1 is -log(sigma*sqrt(2*pi)).
	want := -math.Log(0.5 * math.Sqrt(2*math.Pi))
	assert.InDelta(t, want, e.LogLikelihood(1.0, 1), 0.1)
}

func TestChoiceWeights(t *testing.T) {
	rts := []float64{0.5, 0.6, 0.7, 0.8, -999}
	choices := []int{1, 1, 1, -1, 1}

	e := New(rts, choices, []int{-1, 1}, Options{})
	assert.InDelta(t, 0.6, e.ChoiceProbability(1), 1e-12)
	assert.InDelta(t, 0.2, e.ChoiceProbability(-1), 1e-12)
	assert.Equal(t, 0.0, e.ChoiceProbability(2))
}

func TestLogLikelihoodCutoff(t *testing.T) {
	rts := []float64{0.5, 0.6, 0.7}
	choices := []int{1, 1, 1}
	e := New(rts, choices, []int{-1, 1}, Options{})

	assert.Equal(t, DefaultCutoff, e.LogLikelihood(-0.5, 1), "negative rt")
	assert.Equal(t, DefaultCutoff, e.LogLikelihood(0, 1), "zero rt")
	assert.Equal(t, DefaultCutoff, e.LogLikelihood(0.6, -1), "choice never observed")
	assert.Equal(t, DefaultCutoff, e.LogLikelihood(1e6, 1), "far outside support")
	assert.Greater(t, e.LogLikelihood(0.6, 1), DefaultCutoff)
}

func TestCustomCutoffAndBandwidth(t *testing.T) {
	e := New([]float64{1, 1, 1}, []int{1, 1, 1}, []int{-1, 1}, Options{Cutoff: -10, Bandwidth: 0.1})
	assert.Equal(t, -10.0, e.Cutoff())

	// Identical samples at rt=1 with h=0.1: density = phi(0)/h.
	want := math.Log(1 / (0.1 * math.Sqrt(2*math.Pi)))
	assert.InDelta(t, want, e.LogLikelihood(1, 1), 1e-9)
}

func TestSilvermanFloor(t *testing.T) {
	assert.Equal(t, minBandwidth, silverman([]float64{0.3}))
	assert.Equal(t, minBandwidth, silverman([]float64{0.3, 0.3, 0.3}))
	assert.Greater(t, silverman([]float64{-1, -0.5, 0, 0.5, 1}), minBandwidth)
}

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	rts := append(lognormalSamples(rng, 750, -0.5, 0.3), lognormalSamples(rng, 250, 0, 0.3)...)
	choices := make([]int, 1000)
	for i := range choices {
		if i < 750 {
			choices[i] = 1
		} else {
			choices[i] = -1
		}
	}
	e := New(rts, choices, []int{-1, 1}, Options{})

	srts, schoices := e.Sample(rand.New(rand.NewPCG(3, 3)), 4000)
	require.Len(t, srts, 4000)
	require.Len(t, schoices, 4000)

	up := 0
	for i, rt := range srts {
		assert.Greater(t, rt, 0.0)
		if schoices[i] == 1 {
			up++
		}
	}
	assert.InDelta(t, 0.75, float64(up)/4000, 0.04)
}

func TestSampleEmpty(t *testing.T) {
	e := New([]float64{-999, -999}, []int{1, -1}, []int{-1, 1}, Options{})
	rts, choices := e.Sample(rand.New(rand.NewPCG(1, 1)), 10)
	assert.Nil(t, rts)
	assert.Nil(t, choices)
}
