package engine

import (
	"context"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/pricing"
)

// ExecutionMode defines how a batch is scheduled
type ExecutionMode string

const (
	ExecutionModeAuto       ExecutionMode = "auto"
	ExecutionModeParallel   ExecutionMode = "parallel"
	ExecutionModeSequential ExecutionMode = "sequential"
)

// Contract is one pricing request
type Contract struct {
	ID        string
	Model     pricing.Model
	Type      pricing.OptionType
	Params    pricing.MarketParameters
	View      pricing.View
	Reference float64
	Options   pricing.Options
}

// Result is the outcome of pricing one contract. Value is Price after the
// contract's view has been applied.
type Result struct {
	Contract   Contract
	Price      float64
	Value      float64
	Simulation *pricing.SimulationResult
	Err        error
	Duration   time.Duration
}

// Engine prices batches of contracts, sequentially or on a bounded worker pool
type Engine struct {
	executionMode ExecutionMode
	workers       int
	log           *zap.Logger
}

// New creates an engine from configuration. Auto resolves to parallel when
// more than one CPU is available.
func New(cfg config.EngineConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	mode := ExecutionMode(strings.ToLower(cfg.ExecutionMode))
	switch mode {
	case ExecutionModeParallel, ExecutionModeSequential:
	default:
		mode = ExecutionModeParallel
		if workers == 1 {
			mode = ExecutionModeSequential
		}
	}

	return &Engine{
		executionMode: mode,
		workers:       workers,
		log:           log.Named("engine"),
	}
}

// ExecutionMode returns the resolved mode, never auto
func (e *Engine) ExecutionMode() ExecutionMode {
	return e.executionMode
}

// Workers is the parallel pool size
func (e *Engine) Workers() int {
	return e.workers
}

// Price prices a single contract. Model errors are reported in Result.Err.
func (e *Engine) Price(c Contract) Result {
	start := time.Now()
	res := Result{Contract: c}

	if c.Model == pricing.MonteCarloModel {
		sim, err := pricing.Simulate(c.Params, c.Type, c.Options.Simulation)
		res.Err = err
		if err == nil {
			res.Price = sim.Price
			res.Simulation = &sim
		}
	} else {
		res.Price, res.Err = pricing.Price(c.Model, c.Params, c.Type, c.Options)
	}

	if res.Err == nil {
		res.Value = pricing.ApplyView(c.View, res.Price, c.Reference)
	}
	res.Duration = time.Since(start)
	return res
}

// batchSeeds gives every Monte Carlo contract with a fixed seed the seed
// base+index, so a batch is reproducible whatever order workers run in.
func batchSeeds(contracts []Contract) []Contract {
	out := make([]Contract, len(contracts))
	for i, c := range contracts {
		if c.Model == pricing.MonteCarloModel {
			if base, ok := c.Options.Simulation.Seed.Fixed(); ok {
				c.Options.Simulation.Seed = pricing.FixedSeed(base + uint64(i))
			}
		}
		out[i] = c
	}
	return out
}

// Calculate prices every contract and returns results in input order. A
// cancelled context stops scheduling and is returned as the error; pricing
// failures stay on their own Result.
func (e *Engine) Calculate(ctx context.Context, contracts []Contract) ([]Result, error) {
	if len(contracts) == 0 {
		return nil, nil
	}

	start := time.Now()
	contracts = batchSeeds(contracts)
	results := make([]Result, len(contracts))

	if e.executionMode == ExecutionModeSequential || len(contracts) == 1 {
		for i, c := range contracts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = e.Price(c)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, c := range contracts {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.Price(c)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.log.Debug("⚡ batch priced",
		zap.Int("contracts", len(contracts)),
		zap.Int("failed", failed),
		zap.String("mode", string(e.executionMode)),
		zap.Duration("elapsed", time.Since(start)))

	return results, nil
}
