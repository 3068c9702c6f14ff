package pricing

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarlo_MatchesBlackScholes(t *testing.T) {
	if testing.Short() {
		t.Skip("one million paths, skipped in -short mode")
	}
	analytic, err := BlackScholes(atm, Call)
	require.NoError(t, err)

	res, err := Simulate(atm, Call, SimulationConfig{Paths: 1_000_000, Seed: FixedSeed(42)})
	require.NoError(t, err)

	assert.InDelta(t, analytic, res.Price, 0.05)
	// the estimator's own error bar should cover the gap too
	assert.InDelta(t, analytic, res.Price, 4*res.StandardError+1e-9)
	assert.Less(t, res.StandardError, 0.05)
}

func TestMonteCarlo_SameSeedIsBitIdentical(t *testing.T) {
	cfg := SimulationConfig{Paths: 20_000, Seed: FixedSeed(7)}

	first, err := MonteCarlo(atm, Put, cfg)
	require.NoError(t, err)
	second, err := MonteCarlo(atm, Put, cfg)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(first), math.Float64bits(second))
}

func TestMonteCarlo_DifferentSeedsDiffer(t *testing.T) {
	a, err := MonteCarlo(atm, Call, SimulationConfig{Paths: 10_000, Seed: FixedSeed(1)})
	require.NoError(t, err)
	b, err := MonteCarlo(atm, Call, SimulationConfig{Paths: 10_000, Seed: FixedSeed(2)})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMonteCarlo_RandomSeedCanBeReplayed(t *testing.T) {
	first, err := Simulate(atm, Call, SimulationConfig{Paths: 5_000, Seed: RandomSeed()})
	require.NoError(t, err)

	replay, err := Simulate(atm, Call, SimulationConfig{Paths: 5_000, Seed: FixedSeed(first.Seed)})
	require.NoError(t, err)

	assert.Equal(t, first.Price, replay.Price)
	assert.Equal(t, first.StandardError, replay.StandardError)
	assert.Equal(t, 5_000, replay.Paths)
}

func TestMonteCarlo_PutCallParityApprox(t *testing.T) {
	cfg := SimulationConfig{Paths: 200_000, Seed: FixedSeed(2024)}

	call, err := MonteCarlo(atm, Call, cfg)
	require.NoError(t, err)
	put, err := MonteCarlo(atm, Put, cfg)
	require.NoError(t, err)

	assert.InDelta(t, atm.Spot-atm.Strike*atm.DiscountFactor(), call-put, 0.2)
}

func TestMonteCarlo_DeterministicLimits(t *testing.T) {
	noVol := MarketParameters{Spot: 110, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0}
	price, err := MonteCarlo(noVol, Call, SimulationConfig{Paths: 100, Seed: FixedSeed(3)})
	require.NoError(t, err)
	// every path lands on the forward S*exp(rT)
	assert.InDelta(t, noVol.Spot-noVol.Strike*noVol.DiscountFactor(), price, 1e-9)

	expired := MarketParameters{Spot: 90, Strike: 100, Maturity: 0, Rate: 0.05, Volatility: 0.4}
	put, err := MonteCarlo(expired, Put, SimulationConfig{Paths: 100, Seed: RandomSeed()})
	require.NoError(t, err)
	assert.Equal(t, 10.0, put)
}

func TestMonteCarlo_SinglePathHasNoStandardError(t *testing.T) {
	res, err := Simulate(atm, Call, SimulationConfig{Paths: 1, Seed: FixedSeed(11)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.StandardError)
	assert.GreaterOrEqual(t, res.Price, 0.0)
}

func TestMonteCarlo_InvalidPaths(t *testing.T) {
	for _, paths := range []int{0, -1} {
		_, err := MonteCarlo(atm, Call, SimulationConfig{Paths: paths, Seed: FixedSeed(1)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDomain)
	}
}

func TestMonteCarlo_ConcurrentCallsAreIndependent(t *testing.T) {
	cfg := SimulationConfig{Paths: 10_000, Seed: FixedSeed(99)}
	want, err := MonteCarlo(atm, Call, cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]float64, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = MonteCarlo(atm, Call, cfg)
		}(i)
	}
	wg.Wait()

	for _, v := range got {
		assert.Equal(t, want, v)
	}
}

func TestSeedPolicy_Fixed(t *testing.T) {
	seed, ok := FixedSeed(42).Fixed()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), seed)

	_, ok = RandomSeed().Fixed()
	assert.False(t, ok)
}
