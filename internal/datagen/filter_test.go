package datagen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/simulator"
)

func result(rts []float64, choices []int) *simulator.Result {
	return &simulator.Result{
		RTs:      rts,
		Choices:  choices,
		Metadata: simulator.Metadata{PossibleChoices: []int{-1, 1}},
	}
}

func TestStats(t *testing.T) {
	res := result(
		[]float64{0.5, 0.5, 0.7, 0.9, 1.4, 2.0, simulator.OmissionRT},
		[]int{1, 1, 1, 1, 1, -1, 1},
	)
	stats := Stats(res)
	require.Len(t, stats, 2)

	lower := stats[0]
	assert.Equal(t, -1, lower.Choice)
	assert.Equal(t, 1, lower.Count)
	assert.Equal(t, 2.0, lower.Mode)
	assert.Equal(t, 0.0, lower.Std)
	assert.Equal(t, 0.0, lower.ModeCntRel, "fewer than 5 samples")

	upper := stats[1]
	assert.Equal(t, 5, upper.Count, "omission excluded")
	assert.Equal(t, 0.5, upper.Mode)
	assert.InDelta(t, 0.8, upper.Mean, 1e-12)
	assert.InDelta(t, 0.4, upper.ModeCntRel, 1e-12)
	// Population std of {0.5,0.5,0.7,0.9,1.4}.
	assert.InDelta(t, 0.3346640106, upper.Std, 1e-9)
}

func TestStats_NoSamples(t *testing.T) {
	stats := Stats(result([]float64{1, 2}, []int{1, 1}))
	require.Len(t, stats, 2)
	assert.Equal(t, ChoiceStats{Choice: -1, Mode: -1, Mean: -1, Std: 1}, stats[0])
}

func TestFilters_Pass(t *testing.T) {
	f := DefaultConfig().SimulationFilters
	ok := ChoiceStats{Count: 10, Mode: 0.4, Mean: 0.6, Std: 0.2, ModeCntRel: 0.1}
	assert.True(t, f.Pass(ok))

	tests := []struct {
		name   string
		mutate func(*ChoiceStats)
	}{
		{"mode at bound", func(s *ChoiceStats) { s.Mode = 20 }},
		{"mean above bound", func(s *ChoiceStats) { s.Mean = 17.5 }},
		{"zero std", func(s *ChoiceStats) { s.Std = 0 }},
		{"mode share at bound", func(s *ChoiceStats) { s.ModeCntRel = 0.95 }},
		{"no samples", func(s *ChoiceStats) { s.Count = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mutate(&s)
			assert.False(t, f.Pass(s))
		})
	}

	edge := ok
	edge.Mean = 17
	assert.True(t, f.Pass(edge), "mean bound is inclusive")
}

func TestFilters_Keep(t *testing.T) {
	f := DefaultConfig().SimulationFilters
	good := ChoiceStats{Count: 10, Mode: 0.4, Mean: 0.6, Std: 0.2, ModeCntRel: 0.1}
	empty := ChoiceStats{Choice: 1, Mode: -1, Mean: -1, Std: 1}

	assert.True(t, f.Keep([]ChoiceStats{good, good}))
	assert.False(t, f.Keep([]ChoiceStats{good, empty}), "a choice with no samples fails choice_cnt 0")
}
