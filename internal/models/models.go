package models

import (
	"github.com/shopspring/decimal"
)

// PriceRequest represents a request to price one option
type PriceRequest struct {
	SpotPrice      float64  `json:"spotPrice"`
	StrikePrice    float64  `json:"strikePrice"`
	TimeToMaturity float64  `json:"timeToMaturity"`
	ExpirationDate string   `json:"expirationDate,omitempty"` // overrides timeToMaturity; "next" = next monthly
	RiskFreeRate   *float64 `json:"riskFreeRate,omitempty"`   // nil = treasury rate
	Volatility     float64  `json:"volatility"`
	OptionType     string   `json:"optionType"` // "call" or "put"
	ModelType      string   `json:"modelType"`
	ViewType       string   `json:"viewType"` // "price" or "P&L"
	ReferencePrice *float64 `json:"referencePrice,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	Simulations    int      `json:"simulations,omitempty"`
	Seed           *uint64  `json:"seed,omitempty"`
}

// PriceResponse represents the priced option
type PriceResponse struct {
	OptionPrice   float64  `json:"option_price"`
	Model         string   `json:"model"`
	Maturity      float64  `json:"time_to_maturity"`
	OptionType    string   `json:"option_type"`
	View          string   `json:"view"`
	RiskFreeRate  float64  `json:"risk_free_rate"`
	StandardError *float64 `json:"standard_error,omitempty"`
	Seed          *uint64  `json:"seed,omitempty"`
	RequestID     string   `json:"request_id"`
}

// HeatmapRequest represents a spot × volatility grid request
type HeatmapRequest struct {
	SpotPrices     []float64 `json:"spotPrices"`
	Volatilities   []float64 `json:"volatilities"`
	StrikePrice    float64   `json:"strikePrice"`
	TimeToMaturity float64   `json:"timeToMaturity"`
	ExpirationDate string    `json:"expirationDate,omitempty"`
	RiskFreeRate   *float64  `json:"riskFreeRate,omitempty"`
	OptionType     string    `json:"optionType"`
	ModelType      string    `json:"modelType"`
	ViewType       string    `json:"viewType"`
	ReferencePrice *float64  `json:"referencePrice,omitempty"`
}

// HeatmapResponse holds one row per spot price and one column per volatility
type HeatmapResponse struct {
	Heatmap        [][]float64 `json:"heatmap"`
	ReferencePrice *float64    `json:"reference_price,omitempty"`
	RiskFreeRate   float64     `json:"risk_free_rate"`
	RequestID      string      `json:"request_id"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Round rounds half away from zero to places decimals for display
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundGrid rounds every cell of a heatmap in place
func RoundGrid(grid [][]float64, places int32) [][]float64 {
	for _, row := range grid {
		for j, v := range row {
			row[j] = Round(v, places)
		}
	}
	return grid
}
