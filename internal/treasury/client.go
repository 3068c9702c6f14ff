package treasury

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/internal/retrier"
)

// cacheTTL bounds how long a fetched rate is served without asking again
const cacheTTL = time.Hour

const ratesPath = "/v2/accounting/od/avg_interest_rates?fields=avg_interest_rate_amt,record_date&filter=security_desc:eq:Treasury%20Bills&sort=-record_date&page[size]=1"

// RateProvider supplies a risk-free rate when a request does not carry one
type RateProvider interface {
	RiskFreeRate(ctx context.Context) float64
}

type TreasuryClient struct {
	httpClient *http.Client
	baseURL    string
	retrier    *retrier.Retrier
	log        *zap.Logger

	mu            sync.Mutex
	lastKnownRate float64
	lastFetchTime time.Time
}

type TreasuryResponse struct {
	Data []TreasuryRate `json:"data"`
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
}

type TreasuryRate struct {
	RecordDate            string `json:"record_date"`
	SecurityDesc          string `json:"security_desc"`
	AvgInterestRateAmount string `json:"avg_interest_rate_amt"`
}

// NewTreasuryClient builds a client; the configured fallback rate is served
// until the first successful fetch.
func NewTreasuryClient(cfg config.TreasuryConfig, log *zap.Logger) *TreasuryClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &TreasuryClient{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		retrier:       retrier.New(retrier.WithMaxRetries(cfg.Retries)),
		log:           log.Named("treasury"),
		lastKnownRate: cfg.FallbackRate,
	}
}

// fetchRiskFreeRate does the actual API call
func (tc *TreasuryClient) fetchRiskFreeRate(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.baseURL+ratesPath, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build treasury request")
	}

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "fetch treasury rate")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("treasury API returned status %d", resp.StatusCode)
	}

	var treasuryResp TreasuryResponse
	if err := json.NewDecoder(resp.Body).Decode(&treasuryResp); err != nil {
		return 0, errors.Wrap(err, "decode treasury response")
	}
	if len(treasuryResp.Data) == 0 {
		return 0, errors.New("no treasury rate data returned")
	}

	// percentage string to decimal: "3.983" -> 0.03983
	rateStr := treasuryResp.Data[0].AvgInterestRateAmount
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse rate %q", rateStr)
	}
	return rate / 100.0, nil
}

// GetRiskFreeRate fetches the most recent Treasury Bill rate, retrying
// transient failures, and refreshes the cache on success.
func (tc *TreasuryClient) GetRiskFreeRate(ctx context.Context) (float64, error) {
	rate, err := retrier.DoWithData(ctx, tc.retrier, tc.fetchRiskFreeRate)
	if err != nil {
		return 0, err
	}

	tc.mu.Lock()
	tc.lastKnownRate = rate
	tc.lastFetchTime = time.Now()
	tc.mu.Unlock()

	tc.log.Info("📈 fetched treasury bill rate", zap.Float64("rate", rate))
	return rate, nil
}

// RiskFreeRate serves a cached rate while it is fresh, otherwise fetches one
// and falls back to the last known rate when the API is unavailable.
func (tc *TreasuryClient) RiskFreeRate(ctx context.Context) float64 {
	tc.mu.Lock()
	fresh := !tc.lastFetchTime.IsZero() && time.Since(tc.lastFetchTime) < cacheTTL
	cached := tc.lastKnownRate
	tc.mu.Unlock()
	if fresh {
		return cached
	}

	rate, err := tc.GetRiskFreeRate(ctx)
	if err == nil {
		return rate
	}

	rate, age, ok := tc.GetCacheInfo()
	tc.log.Warn("⚠️ treasury API failed, using last known rate",
		zap.Error(err), zap.Float64("rate", rate), zap.Duration("age", age), zap.Bool("fetched", ok))
	return rate
}

// GetCacheInfo returns the cached rate, its age and whether it ever came from the API
func (tc *TreasuryClient) GetCacheInfo() (rate float64, age time.Duration, isInitialized bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.lastFetchTime.IsZero() {
		return tc.lastKnownRate, 0, false
	}
	return tc.lastKnownRate, time.Since(tc.lastFetchTime), true
}

// StaticRate is a RateProvider that always answers the same rate
type StaticRate float64

func (s StaticRate) RiskFreeRate(context.Context) float64 {
	return float64(s)
}
