package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/internal/engine"
	"github.com/jwaldner/optionlab/internal/models"
	"github.com/jwaldner/optionlab/internal/treasury"
	"github.com/jwaldner/optionlab/internal/utils"
	"github.com/jwaldner/optionlab/pricing"
)

// errRequest marks input the handler rejects before any pricing happens
var errRequest = errors.New("invalid request")

// errNotFinite marks a model result that cannot be rounded or encoded
var errNotFinite = errors.New("pricing produced a non-finite value")

// StatsPricer is a pricer that also reports its performance counters
type StatsPricer interface {
	engine.Pricer
	Stats() engine.Stats
}

// OptionsHandler handles option pricing requests - HTTP layer only
type OptionsHandler struct {
	pricer StatsPricer
	rates  treasury.RateProvider
	config *config.Config
	log    *zap.Logger
}

// NewOptionsHandler creates a new options handler
func NewOptionsHandler(pricer StatsPricer, rates treasury.RateProvider, cfg *config.Config, log *zap.Logger) *OptionsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OptionsHandler{
		pricer: pricer,
		rates:  rates,
		config: cfg,
		log:    log.Named("handlers"),
	}
}

// Register mounts the pricing API on r
func (h *OptionsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/option-price", h.PriceHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/heatmap-data", h.HeatmapHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", h.StatsHandler).Methods(http.MethodGet)
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to a status: rejected input and domain errors are
// the caller's fault, anything else is ours.
func (h *OptionsHandler) writeError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errRequest), errors.Is(err, pricing.ErrDomain):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFinite):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error("❌ pricing request failed", zap.String("request_id", requestID), zap.Error(err))
	} else {
		h.log.Debug("pricing request rejected", zap.String("request_id", requestID), zap.Error(err))
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error(), RequestID: requestID})
}

// newRequestID tags the response so a client report can be found in the log
func newRequestID(w http.ResponseWriter) string {
	id := uuid.New().String()
	w.Header().Set("X-Request-ID", id)
	return id
}

type contractTerms struct {
	model pricing.Model
	typ   pricing.OptionType
	view  pricing.View
}

func parseTerms(model, optionType, view string) (contractTerms, error) {
	var terms contractTerms
	var err error
	if terms.model, err = pricing.ParseModel(model); err != nil {
		return terms, errors.Wrap(errRequest, err.Error())
	}
	if terms.typ, err = pricing.ParseOptionType(optionType); err != nil {
		return terms, errors.Wrap(errRequest, err.Error())
	}
	if terms.view, err = pricing.ParseView(view); err != nil {
		return terms, errors.Wrap(errRequest, err.Error())
	}
	return terms, nil
}

// options resolves per-request knobs against the configured defaults and caps
func (h *OptionsHandler) options(steps, simulations int, seed *uint64) (pricing.Options, error) {
	opts := h.config.Pricing.Options()
	if steps != 0 {
		opts.Steps = steps
	}
	if simulations != 0 {
		opts.Simulation.Paths = simulations
	}
	if seed != nil {
		opts.Simulation.Seed = pricing.FixedSeed(*seed)
	}

	if limit := h.config.Pricing.MaxSteps; limit > 0 && opts.Steps > limit {
		return opts, errors.Wrapf(errRequest, "steps %d exceeds limit %d", opts.Steps, limit)
	}
	if limit := h.config.Pricing.MaxSimulations; limit > 0 && opts.Simulation.Paths > limit {
		return opts, errors.Wrapf(errRequest, "simulations %d exceeds limit %d", opts.Simulation.Paths, limit)
	}
	return opts, nil
}

// maturity prefers an expiration date over an explicit time to maturity
func maturity(years float64, expiration string) (float64, error) {
	if expiration == "" {
		return years, nil
	}
	t, err := utils.YearsToExpiration(time.Now(), expiration)
	if err != nil {
		return 0, errors.Wrap(errRequest, err.Error())
	}
	return t, nil
}

func checkFinite(what string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(errNotFinite, "%s is %v", what, v)
		}
	}
	return nil
}

func (h *OptionsHandler) rate(ctx context.Context, requested *float64) float64 {
	if requested != nil {
		return *requested
	}
	return h.rates.RiskFreeRate(ctx)
}

// PriceHandler prices one option under the requested model and view
func (h *OptionsHandler) PriceHandler(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	requestID := newRequestID(w)

	var req models.PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, requestID, errors.Wrap(errRequest, "invalid request body"))
		return
	}

	terms, err := parseTerms(req.ModelType, req.OptionType, req.ViewType)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if terms.view == pricing.ViewPnL && req.ReferencePrice == nil {
		h.writeError(w, requestID, errors.Wrap(errRequest, "P&L view requires referencePrice"))
		return
	}
	opts, err := h.options(req.Steps, req.Simulations, req.Seed)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	years, err := maturity(req.TimeToMaturity, req.ExpirationDate)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	contract := engine.Contract{
		ID:    requestID,
		Model: terms.model,
		Type:  terms.typ,
		Params: pricing.MarketParameters{
			Spot:       req.SpotPrice,
			Strike:     req.StrikePrice,
			Maturity:   years,
			Rate:       h.rate(r.Context(), req.RiskFreeRate),
			Volatility: req.Volatility,
		},
		View:    terms.view,
		Options: opts,
	}
	if req.ReferencePrice != nil {
		contract.Reference = *req.ReferencePrice
	}

	results, err := h.pricer.Calculate(r.Context(), []engine.Contract{contract})
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	res := results[0]
	if res.Err != nil {
		h.writeError(w, requestID, res.Err)
		return
	}
	if err := checkFinite("option price", res.Value); err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if res.Simulation != nil {
		if err := checkFinite("standard error", res.Simulation.StandardError); err != nil {
			h.writeError(w, requestID, err)
			return
		}
	}

	places := h.config.Server.RoundPlaces
	resp := models.PriceResponse{
		OptionPrice:  models.Round(res.Value, places),
		Model:        terms.model.String(),
		Maturity:     years,
		OptionType:   terms.typ.String(),
		View:         terms.view.String(),
		RiskFreeRate: contract.Params.Rate,
		RequestID:    requestID,
	}
	if res.Simulation != nil {
		seed := res.Simulation.Seed
		stderr := models.Round(res.Simulation.StandardError, places)
		resp.Seed = &seed
		resp.StandardError = &stderr
	}

	h.log.Info("💰 priced option",
		zap.String("request_id", requestID),
		zap.String("model", resp.Model),
		zap.String("type", resp.OptionType),
		zap.String("view", resp.View),
		zap.Float64("value", res.Value),
		zap.Duration("took", res.Duration))

	writeJSON(w, http.StatusOK, resp)
}

// HeatmapHandler prices a spot × volatility grid
func (h *OptionsHandler) HeatmapHandler(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	requestID := newRequestID(w)

	var req models.HeatmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, requestID, errors.Wrap(errRequest, "invalid request body"))
		return
	}

	terms, err := parseTerms(req.ModelType, req.OptionType, req.ViewType)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	opts, err := h.options(0, 0, nil)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	years, err := maturity(req.TimeToMaturity, req.ExpirationDate)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	hr := engine.HeatmapRequest{
		Model:        terms.model,
		Type:         terms.typ,
		Spots:        req.SpotPrices,
		Volatilities: req.Volatilities,
		Strike:       req.StrikePrice,
		Maturity:     years,
		Rate:         h.rate(r.Context(), req.RiskFreeRate),
		View:         terms.view,
		Reference:    req.ReferencePrice,
		Options:      opts,
	}
	if limit := h.config.Server.MaxGridCells; limit > 0 && hr.Cells() > limit {
		h.writeError(w, requestID, errors.Wrapf(errRequest, "grid of %d cells exceeds limit %d", hr.Cells(), limit))
		return
	}

	start := time.Now()
	hm, err := h.pricer.Heatmap(r.Context(), hr)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if err := checkFinite("reference price", hm.Reference); err != nil {
		h.writeError(w, requestID, err)
		return
	}
	for i, row := range hm.Cells {
		if err := checkFinite(fmt.Sprintf("heatmap row %d", i), row...); err != nil {
			h.writeError(w, requestID, err)
			return
		}
	}

	places := h.config.Server.RoundPlaces
	resp := models.HeatmapResponse{
		Heatmap:      models.RoundGrid(hm.Cells, places),
		RiskFreeRate: hr.Rate,
		RequestID:    requestID,
	}
	if terms.view == pricing.ViewPnL {
		ref := models.Round(hm.Reference, places)
		resp.ReferencePrice = &ref
	}

	h.log.Info("🗺️ priced heatmap",
		zap.String("request_id", requestID),
		zap.String("model", terms.model.String()),
		zap.Int("rows", len(req.SpotPrices)),
		zap.Int("cols", len(req.Volatilities)),
		zap.Duration("took", time.Since(start)))

	writeJSON(w, http.StatusOK, resp)
}

// HealthHandler reports liveness
func (h *OptionsHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// StatsHandler reports engine performance counters
func (h *OptionsHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	writeJSON(w, http.StatusOK, h.pricer.Stats())
}
