package pricing

import "math"

// NormCDF is the standard normal cumulative distribution function,
// computed through the complementary error function.
func NormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// BlackScholes prices a European option with the closed-form Black-Scholes formula.
// Zero volatility or zero maturity falls back to the discounted intrinsic value.
func BlackScholes(p MarketParameters, t OptionType) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.Degenerate() {
		return discountedIntrinsic(p, t), nil
	}

	volSqrtT := p.Volatility * math.Sqrt(p.Maturity)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Volatility*p.Volatility)*p.Maturity) / volSqrtT
	d2 := d1 - volSqrtT
	pvStrike := p.Strike * p.DiscountFactor()

	if t == Put {
		return pvStrike*NormCDF(-d2) - p.Spot*NormCDF(-d1), nil
	}
	return p.Spot*NormCDF(d1) - pvStrike*NormCDF(d2), nil
}
