package pricing

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrDomain marks invalid mathematical input. Every validation failure in this
// package wraps it, so callers can tell it apart with errors.Is.
var ErrDomain = errors.New("domain error")

// OptionType fixes the payoff of a European option
type OptionType int

const (
	Call OptionType = iota
	Put
)

// ParseOptionType accepts "call" or "put" in any case
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return 0, errors.Errorf("invalid option type %q, use 'call' or 'put'", s)
}

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// Payoff is the settlement value at maturity for terminal price st
func (t OptionType) Payoff(st, strike float64) float64 {
	if t == Put {
		return math.Max(strike-st, 0)
	}
	return math.Max(st-strike, 0)
}

// MarketParameters are the inputs shared by every model
type MarketParameters struct {
	Spot       float64 `json:"spot" yaml:"spot"`
	Strike     float64 `json:"strike" yaml:"strike"`
	Maturity   float64 `json:"maturity" yaml:"maturity"` // years
	Rate       float64 `json:"rate" yaml:"rate"`         // continuously compounded
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

// Validate rejects non-physical inputs. Zero spot or zero strike are allowed
// (they have well defined limiting prices) but not both at once.
func (p MarketParameters) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"spot", p.Spot},
		{"strike", p.Strike},
		{"maturity", p.Maturity},
		{"rate", p.Rate},
		{"volatility", p.Volatility},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Wrapf(ErrDomain, "%s must be finite, got %v", f.name, f.value)
		}
	}

	switch {
	case p.Spot < 0:
		return errors.Wrapf(ErrDomain, "spot must be non-negative, got %v", p.Spot)
	case p.Strike < 0:
		return errors.Wrapf(ErrDomain, "strike must be non-negative, got %v", p.Strike)
	case p.Spot == 0 && p.Strike == 0:
		return errors.Wrap(ErrDomain, "spot and strike cannot both be zero")
	case p.Maturity < 0:
		return errors.Wrapf(ErrDomain, "maturity must be non-negative, got %v", p.Maturity)
	case p.Volatility < 0:
		return errors.Wrapf(ErrDomain, "volatility must be non-negative, got %v", p.Volatility)
	}
	return nil
}

// Degenerate reports whether the price collapses to the discounted intrinsic value
func (p MarketParameters) Degenerate() bool {
	return p.Volatility == 0 || p.Maturity == 0
}

// DiscountFactor is exp(-rT)
func (p MarketParameters) DiscountFactor() float64 {
	return math.Exp(-p.Rate * p.Maturity)
}

// discountedIntrinsic is the limiting price when no randomness is left:
// max(0, S-K) or max(0, K-S), discounted by exp(-rT).
func discountedIntrinsic(p MarketParameters, t OptionType) float64 {
	return t.Payoff(p.Spot, p.Strike) * p.DiscountFactor()
}
