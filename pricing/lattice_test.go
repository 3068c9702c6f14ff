package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinomial_ConvergesToBlackScholes(t *testing.T) {
	for _, typ := range []OptionType{Call, Put} {
		analytic, err := BlackScholes(atm, typ)
		require.NoError(t, err)

		var prevErr float64
		for i, steps := range []int{100, 500, 1000} {
			price, err := Binomial(steps, atm, typ)
			require.NoError(t, err)

			diff := math.Abs(price - analytic)
			assert.LessOrEqual(t, diff, 2.5/float64(steps), "%s steps=%d price=%v analytic=%v", typ, steps, price, analytic)
			if i > 0 {
				assert.Less(t, diff, prevErr, "%s error should shrink as steps grow", typ)
			}
			prevErr = diff
		}
	}
}

func TestBinomial_OddAndEvenSteps(t *testing.T) {
	analytic, err := BlackScholes(atm, Call)
	require.NoError(t, err)

	for _, steps := range []int{499, 500, 501} {
		price, err := Binomial(steps, atm, Call)
		require.NoError(t, err)
		assert.InDelta(t, analytic, price, 5e-3, "steps=%d", steps)
	}
}

func TestBinomial_PutCallParity(t *testing.T) {
	p := MarketParameters{Spot: 70, Strike: 60, Maturity: 2, Rate: 0.1, Volatility: 0.2}

	call, err := Binomial(200, p, Call)
	require.NoError(t, err)
	put, err := Binomial(200, p, Put)
	require.NoError(t, err)

	assert.InDelta(t, p.Spot-p.Strike*p.DiscountFactor(), call-put, 1e-8)
}

func TestBinomial_SingleStep(t *testing.T) {
	p := MarketParameters{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2}

	price, err := Binomial(1, p, Call)
	require.NoError(t, err)

	u := math.Exp(0.2)
	d := 1 / u
	prob := (math.Exp(0.05) - d) / (u - d)
	want := math.Exp(-0.05) * (prob*(100*u-100) + (1-prob)*0)
	assert.InDelta(t, want, price, 1e-12)
}

func TestBinomial_ZeroVolatilityMatchesBlackScholes(t *testing.T) {
	p := MarketParameters{Spot: 120, Strike: 100, Maturity: 1.5, Rate: 0.03, Volatility: 0}
	want := math.Max(0, p.Spot-p.Strike) * math.Exp(-p.Rate*p.Maturity)

	lattice, err := Binomial(100, p, Call)
	require.NoError(t, err)
	analytic, err := BlackScholes(p, Call)
	require.NoError(t, err)

	assert.Equal(t, want, lattice)
	assert.Equal(t, want, analytic)
	assert.False(t, math.IsNaN(lattice))
}

func TestBinomial_ZeroMaturity(t *testing.T) {
	p := MarketParameters{Spot: 90, Strike: 100, Maturity: 0, Rate: 0.05, Volatility: 0.3}

	put, err := Binomial(50, p, Put)
	require.NoError(t, err)
	assert.Equal(t, 10.0, put)
}

func TestBinomial_Boundaries(t *testing.T) {
	zeroSpot := MarketParameters{Spot: 0, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2}

	call, err := Binomial(100, zeroSpot, Call)
	require.NoError(t, err)
	assert.Equal(t, 0.0, call)

	put, err := Binomial(100, zeroSpot, Put)
	require.NoError(t, err)
	assert.InDelta(t, 100*math.Exp(-0.05), put, 1e-9)

	zeroStrike := MarketParameters{Spot: 100, Strike: 0, Maturity: 1, Rate: 0.05, Volatility: 0.2}
	call, err = Binomial(100, zeroStrike, Call)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, call, 1e-9)
}

func TestBinomial_TinyVolatilityNeedsMoreSteps(t *testing.T) {
	for _, sigma := range []float64{1e-3, 1e-6, 1e-9} {
		p := MarketParameters{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: sigma}

		price, err := Binomial(100, p, Call)
		require.Error(t, err, "sigma=%g price=%v", sigma, price)
		assert.ErrorIs(t, err, ErrDomain)
		assert.Contains(t, err.Error(), "outside [0,1]")
		assert.Equal(t, 0.0, price)
	}

	// r^2*T/sigma^2 = 2500 for sigma = 1e-3
	p := MarketParameters{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 1e-3}
	_, err := Binomial(2000, p, Call)
	require.ErrorIs(t, err, ErrDomain)
	assert.Contains(t, err.Error(), "use at least 2501 steps")

	price, err := Binomial(3000, p, Call)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price) || math.IsInf(price, 0))

	analytic, err := BlackScholes(p, Call)
	require.NoError(t, err)
	assert.InDelta(t, analytic, price, 1e-6)
}

func TestBinomial_NegativeRateTinyVolatility(t *testing.T) {
	p := MarketParameters{Spot: 100, Strike: 100, Maturity: 1, Rate: -0.02, Volatility: 1e-6}

	_, err := Binomial(100, p, Put)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestBinomial_ExtremeInputsStayFinite(t *testing.T) {
	p := MarketParameters{Spot: 186.53, Strike: 100, Maturity: 3.0 / 365, Rate: 0.0425, Volatility: 4.63}

	price, err := Binomial(5000, p, Call)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price) || math.IsInf(price, 0))

	analytic, err := BlackScholes(p, Call)
	require.NoError(t, err)
	assert.InDelta(t, analytic, price, 0.05)
}

func TestBinomial_InvalidSteps(t *testing.T) {
	for _, steps := range []int{0, -10} {
		_, err := Binomial(steps, atm, Call)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDomain)
	}

	_, err := Binomial(10, MarketParameters{Spot: -1, Strike: 100, Maturity: 1, Volatility: 0.2}, Put)
	assert.ErrorIs(t, err, ErrDomain)
}
