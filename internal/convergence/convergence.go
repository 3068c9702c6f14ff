// Package convergence measures how the lattice and simulation models approach
// the closed-form price.
package convergence

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/pricing"
)

type LatticeRow struct {
	Steps    int
	Price    float64
	AbsError float64
}

type SimulationRow struct {
	Seed          uint64
	Price         float64
	StandardError float64
	AbsError      float64
}

// Summary aggregates the simulation rows across seeds
type Summary struct {
	Mean        float64
	StdDev      float64
	MaxAbsError float64
}

type Report struct {
	Type       pricing.OptionType
	Params     pricing.MarketParameters
	Analytic   float64
	Paths      int
	Lattice    []LatticeRow
	Simulation []SimulationRow
	Summary    Summary
}

// Study prices one contract with every configured step count and seed and
// compares each result against Black-Scholes.
func Study(ctx context.Context, cfg config.ConvergenceConfig, p pricing.MarketParameters, t pricing.OptionType) (*Report, error) {
	analytic, err := pricing.BlackScholes(p, t)
	if err != nil {
		return nil, err
	}

	r := &Report{Type: t, Params: p, Analytic: analytic, Paths: cfg.Simulations}

	for _, n := range cfg.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		price, err := pricing.Binomial(n, p, t)
		if err != nil {
			return nil, errors.Wrapf(err, "lattice with %d steps", n)
		}
		r.Lattice = append(r.Lattice, LatticeRow{Steps: n, Price: price, AbsError: math.Abs(price - analytic)})
	}

	if len(cfg.Seeds) == 0 {
		return r, nil
	}

	r.Simulation = make([]SimulationRow, len(cfg.Seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range cfg.Seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := pricing.Simulate(p, t, pricing.SimulationConfig{Paths: cfg.Simulations, Seed: pricing.FixedSeed(seed)})
			if err != nil {
				return errors.Wrapf(err, "simulation with seed %d", seed)
			}
			r.Simulation[i] = SimulationRow{
				Seed:          seed,
				Price:         res.Price,
				StandardError: res.StandardError,
				AbsError:      math.Abs(res.Price - analytic),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.Summary, err = summarize(r.Simulation)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func summarize(rows []SimulationRow) (Summary, error) {
	prices := make(stats.Float64Data, len(rows))
	errs := make(stats.Float64Data, len(rows))
	for i, row := range rows {
		prices[i] = row.Price
		errs[i] = row.AbsError
	}

	var s Summary
	var err error
	if s.Mean, err = prices.Mean(); err != nil {
		return s, errors.Wrap(err, "mean")
	}
	if s.StdDev, err = prices.StandardDeviation(); err != nil {
		return s, errors.Wrap(err, "standard deviation")
	}
	if s.MaxAbsError, err = errs.Max(); err != nil {
		return s, errors.Wrap(err, "max error")
	}
	return s, nil
}

// Render writes the report as two tables
func Render(w io.Writer, r *Report) {
	fmt.Fprintf(w, "%s S=%g K=%g T=%g r=%g sigma=%g\n", r.Type, r.Params.Spot, r.Params.Strike,
		r.Params.Maturity, r.Params.Rate, r.Params.Volatility)
	fmt.Fprintf(w, "Black-Scholes: %.6f\n\n", r.Analytic)

	if len(r.Lattice) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Steps", "Binomial", "Abs Error", "Error × N"})
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, row := range r.Lattice {
			table.Append([]string{
				fmt.Sprintf("%d", row.Steps),
				fmt.Sprintf("%.6f", row.Price),
				fmt.Sprintf("%.2e", row.AbsError),
				fmt.Sprintf("%.4f", row.AbsError*float64(row.Steps)),
			})
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if len(r.Simulation) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Seed", "Monte Carlo", "Std Error", "Abs Error"})
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, row := range r.Simulation {
			table.Append([]string{
				fmt.Sprintf("%d", row.Seed),
				fmt.Sprintf("%.6f", row.Price),
				fmt.Sprintf("%.6f", row.StandardError),
				fmt.Sprintf("%.6f", row.AbsError),
			})
		}
		table.SetFooter([]string{
			fmt.Sprintf("%d paths", r.Paths),
			fmt.Sprintf("mean %.6f", r.Summary.Mean),
			fmt.Sprintf("sd %.6f", r.Summary.StdDev),
			fmt.Sprintf("max %.6f", r.Summary.MaxAbsError),
		})
		table.Render()
	}
}
