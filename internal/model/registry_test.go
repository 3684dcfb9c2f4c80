package model

import (
	"math/rand/v2"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ssmgen/internal/canon"
)

func TestBuiltinsValidate(t *testing.T) {
	reg := NewRegistry()
	for _, name := range reg.Names() {
		cfg, ok := reg.Lookup(name)
		require.True(t, ok)
		assert.NoError(t, cfg.Validate(), name)
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t,
		[]string{"angle", "ddm", "full_ddm", "lca_3", "ornstein", "race_3", "weibull"},
		reg.Names())
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	reg := NewRegistry()

	cfg, ok := reg.Lookup("ddm")
	require.True(t, ok)
	cfg.Params[0] = "mutated"

	again, _ := reg.Lookup("ddm")
	assert.Equal(t, "v", again.Params[0])
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	ddm, _ := reg.Lookup("ddm")
	ddm.Name = "ddm_wide"
	ddm.ParamBoundsHigh[1] = 4.0
	require.NoError(t, reg.Register(ddm))

	got, ok := reg.Lookup("ddm_wide")
	require.True(t, ok)
	assert.Equal(t, 4.0, got.ParamBoundsHigh[1])

	err := reg.Register(ddm)
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistryRegisterRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	ddm, _ := reg.Lookup("ddm")
	ddm.Name = "broken"
	ddm.NParams = 3

	assert.Error(t, reg.Register(ddm))
	_, ok := reg.Lookup("broken")
	assert.False(t, ok)
}

func TestRegistryRegisterRejectsUnreportedChoices(t *testing.T) {
	reg := NewRegistry()
	ddm, _ := reg.Lookup("ddm")
	ddm.Name = "ddm_binary"
	ddm.Choices = []int{0, 1}

	assert.ErrorContains(t, reg.Register(ddm), "reports choices [-1 1]")
	_, ok := reg.Lookup("ddm_binary")
	assert.False(t, ok)
}

func TestBuiltinGolden(t *testing.T) {
	reg := NewRegistry()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"ddm", "angle"} {
		cfg, _ := reg.Lookup(name)
		data, err := canon.MarshalCanonical(cfg)
		require.NoError(t, err)
		g.Assert(t, name, data)
	}
}

func TestThetaFromMap(t *testing.T) {
	reg := NewRegistry()
	cfg, _ := reg.Lookup("ddm")

	theta, err := cfg.ThetaFromMap(map[string]float64{"v": 1.5, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 0.5, 0.001}, theta)

	_, err = cfg.ThetaFromMap(map[string]float64{"drift": 1})
	assert.ErrorContains(t, err, "unknown parameter")
}

func TestThetaMap(t *testing.T) {
	reg := NewRegistry()
	cfg, _ := reg.Lookup("ddm")

	m := cfg.ThetaMap([]float64{0.1, 1.2, 0.4, 0.3})
	assert.Equal(t, map[string]float64{"v": 0.1, "a": 1.2, "z": 0.4, "t": 0.3}, m)
}

func TestCheckBounds(t *testing.T) {
	reg := NewRegistry()
	cfg, _ := reg.Lookup("ddm")

	assert.NoError(t, cfg.CheckBounds([]float64{0, 1, 0.5, 0.3}))
	assert.NoError(t, cfg.CheckBounds(cfg.ParamBoundsLow), "bounds are inclusive")
	assert.ErrorContains(t, cfg.CheckBounds([]float64{0, 3, 0.5, 0.3}), "a=3")
	assert.ErrorContains(t, cfg.CheckBounds([]float64{0, 1}), "theta has 2 values")
}

func TestUniformSampleWithinBounds(t *testing.T) {
	reg := NewRegistry()
	rng := rand.New(rand.NewPCG(1, 2))

	for _, name := range reg.Names() {
		cfg, _ := reg.Lookup(name)
		for i := 0; i < 200; i++ {
			theta := cfg.UniformSample(rng)
			require.NoError(t, cfg.CheckBounds(theta), name)
		}
	}
}

func TestKernelParams(t *testing.T) {
	p, ok := KernelParams(KernelRace, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"v0", "v1", "a", "z0", "z1", "t"}, p)

	p, ok = KernelParams(KernelLCA, 3)
	require.True(t, ok)
	assert.Equal(t, []string{"v0", "v1", "v2", "a", "z0", "z1", "z2", "g", "b", "t"}, p)

	_, ok = KernelParams("levy", 2)
	assert.False(t, ok)
}
