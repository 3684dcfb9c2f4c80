package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHashStableAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"n_samples": 1000, "model": "ddm", "delta_t": 0.001}
	b := map[string]any{"delta_t": 0.001, "model": "ddm", "n_samples": 1000}

	ha, err := ConfigHash(a)
	require.NoError(t, err)
	hb, err := ConfigHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestConfigHashDiffersOnValue(t *testing.T) {
	ha, err := ConfigHash(map[string]any{"n_samples": 1000})
	require.NoError(t, err)
	hb, err := ConfigHash(map[string]any{"n_samples": 1001})
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestDomainSeparation(t *testing.T) {
	v := map[string]any{"x": 1}

	h1, err := Hash(DomainConfig, v)
	require.NoError(t, err)
	h2, err := Hash(DomainModel, v)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same payload under different domains must not collide")
}

func TestParamSetID(t *testing.T) {
	id1 := MustParamSetID("run-1", 0, []float64{0.5, 1.0, 0.5, 0.3})
	id2 := MustParamSetID("run-1", 0, []float64{0.5, 1.0, 0.5, 0.3})
	id3 := MustParamSetID("run-1", 1, []float64{0.5, 1.0, 0.5, 0.3})
	id4 := MustParamSetID("run-2", 0, []float64{0.5, 1.0, 0.5, 0.3})

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.NotEqual(t, id1, id4)
}
