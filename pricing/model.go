// Package pricing prices European options under three models: the closed-form
// Black-Scholes formula, a Cox-Ross-Rubinstein binomial lattice and a Monte
// Carlo simulation of geometric Brownian motion.
//
// Every function here is a pure computation over explicit inputs. Nothing is
// logged, nothing is shared between calls, and invalid input is reported with
// an error wrapping ErrDomain.
package pricing

import (
	"strings"

	"github.com/pkg/errors"
)

// Model identifies one of the pricing methods
type Model int

const (
	BlackScholesModel Model = iota
	BinomialModel
	MonteCarloModel
)

var modelNames = map[string]Model{
	"black-scholes": BlackScholesModel,
	"black scholes": BlackScholesModel,
	"blackscholes":  BlackScholesModel,
	"bs":            BlackScholesModel,
	"analytic":      BlackScholesModel,
	"binomial":      BinomialModel,
	"lattice":       BinomialModel,
	"crr":           BinomialModel,
	"monte-carlo":   MonteCarloModel,
	"monte carlo":   MonteCarloModel,
	"montecarlo":    MonteCarloModel,
	"mc":            MonteCarloModel,
}

// ParseModel maps the CLI and API spellings ("Black-Scholes", "binomial",
// "Monte Carlo", ...) to a Model
func ParseModel(s string) (Model, error) {
	if m, ok := modelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return 0, errors.Errorf("unknown model %q", s)
}

func (m Model) String() string {
	switch m {
	case BinomialModel:
		return "binomial"
	case MonteCarloModel:
		return "monte-carlo"
	default:
		return "black-scholes"
	}
}

// Options carries the per-model knobs. Steps is read by the binomial model
// and Simulation by the Monte Carlo model; the analytic model ignores both.
type Options struct {
	Steps      int
	Simulation SimulationConfig
}

// Price dispatches to the pricer selected by model
func Price(model Model, p MarketParameters, t OptionType, opts Options) (float64, error) {
	switch model {
	case BlackScholesModel:
		return BlackScholes(p, t)
	case BinomialModel:
		return Binomial(opts.Steps, p, t)
	case MonteCarloModel:
		return MonteCarlo(p, t, opts.Simulation)
	}
	return 0, errors.Wrapf(ErrDomain, "unknown model %d", int(model))
}
