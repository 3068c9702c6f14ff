package pricing

import (
	"math"

	"github.com/pkg/errors"
)

// Binomial prices a European option on a Cox-Ross-Rubinstein recombining tree
// with the given number of time steps.
//
// Only one tree level is resident at a time. Two buffers of steps+1 nodes are
// swapped on every level so a node never reads a value already overwritten
// for the level being built.
func Binomial(steps int, p MarketParameters, t OptionType) (float64, error) {
	if steps < 1 {
		return 0, errors.Wrapf(ErrDomain, "binomial steps must be at least 1, got %d", steps)
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	dt := p.Maturity / float64(steps)
	move := p.Volatility * math.Sqrt(dt)
	u := math.Exp(move)
	d := 1 / u
	if u == d {
		// sigma or dt is zero: the risk-neutral probability is 0/0
		return discountedIntrinsic(p, t), nil
	}
	prob := (math.Exp(p.Rate*dt) - d) / (u - d)
	if prob < 0 || prob > 1 {
		// d < exp(r*dt) < u only holds once sigma*sqrt(dt) exceeds |r|*dt
		need := math.Floor(p.Rate*p.Rate*p.Maturity/(p.Volatility*p.Volatility)) + 1
		return 0, errors.Wrapf(ErrDomain,
			"binomial tree with %d steps has risk-neutral probability %g outside [0,1] for volatility %g; use at least %.0f steps",
			steps, prob, p.Volatility, need)
	}
	disc := math.Exp(-p.Rate * dt)

	cur := make([]float64, steps+1)
	next := make([]float64, steps+1)

	// S*u^j*d^(N-j) == S*exp(move*(2j-N)), without large intermediate powers
	for j := 0; j <= steps; j++ {
		st := p.Spot * math.Exp(move*float64(2*j-steps))
		cur[j] = t.Payoff(st, p.Strike)
	}

	for i := steps - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			next[j] = disc * (prob*cur[j+1] + (1-prob)*cur[j])
		}
		cur, next = next, cur
	}

	return cur[0], nil
}
