package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jwaldner/optionlab/pricing"
)

// HeatmapRequest describes a spot × volatility grid for one model and option type
type HeatmapRequest struct {
	Model        pricing.Model
	Type         pricing.OptionType
	Spots        []float64
	Volatilities []float64
	Strike       float64
	Maturity     float64
	Rate         float64
	View         pricing.View
	// Reference is the P&L reference price; nil means the centre cell
	Reference *float64
	Options   pricing.Options
}

// Heatmap holds one value per cell. Rows follow Spots, columns Volatilities.
type Heatmap struct {
	Cells     [][]float64
	Reference float64
}

// Cells is the number of grid points the request would price
func (r HeatmapRequest) Cells() int {
	return len(r.Spots) * len(r.Volatilities)
}

// Heatmap prices every grid cell. Under the P&L view each cell is reported
// against the reference price, which defaults to the centre cell's price.
func (e *Engine) Heatmap(ctx context.Context, req HeatmapRequest) (*Heatmap, error) {
	if len(req.Spots) == 0 || len(req.Volatilities) == 0 {
		return nil, errors.Wrap(pricing.ErrDomain, "heatmap needs at least one spot price and one volatility")
	}

	cols := len(req.Volatilities)
	contracts := make([]Contract, 0, req.Cells())
	for i, s := range req.Spots {
		for j, v := range req.Volatilities {
			contracts = append(contracts, Contract{
				ID:    fmt.Sprintf("%d:%d", i, j),
				Model: req.Model,
				Type:  req.Type,
				Params: pricing.MarketParameters{
					Spot:       s,
					Strike:     req.Strike,
					Maturity:   req.Maturity,
					Rate:       req.Rate,
					Volatility: v,
				},
				View:    pricing.ViewPrice,
				Options: req.Options,
			})
		}
	}

	results, err := e.Calculate(ctx, contracts)
	if err != nil {
		return nil, err
	}

	hm := &Heatmap{Cells: make([][]float64, len(req.Spots))}
	for i := range hm.Cells {
		hm.Cells[i] = make([]float64, cols)
	}
	for k, r := range results {
		if r.Err != nil {
			return nil, errors.Wrapf(r.Err, "spot %g volatility %g", r.Contract.Params.Spot, r.Contract.Params.Volatility)
		}
		hm.Cells[k/cols][k%cols] = r.Price
	}

	if req.View != pricing.ViewPnL {
		return hm, nil
	}

	if req.Reference != nil {
		hm.Reference = *req.Reference
	} else {
		hm.Reference = hm.Cells[len(req.Spots)/2][cols/2]
	}
	for _, row := range hm.Cells {
		for j := range row {
			row[j] = pricing.PnL(row[j], hm.Reference)
		}
	}
	return hm, nil
}
