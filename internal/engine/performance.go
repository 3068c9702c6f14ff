package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// slowRequest is the duration above which a request counts as slow
const slowRequest = 2 * time.Second

// Pricer is what the HTTP layer needs from an engine
type Pricer interface {
	Calculate(ctx context.Context, contracts []Contract) ([]Result, error)
	Heatmap(ctx context.Context, req HeatmapRequest) (*Heatmap, error)
}

// Stats is a snapshot of the wrapper's counters
type Stats struct {
	TotalRequests   int64         `json:"total_requests"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	SlowRequests    int64         `json:"slow_requests"`
	ExecutionMode   ExecutionMode `json:"execution_mode"`
	Workers         int           `json:"workers"`
}

// PerformanceWrapper wraps the engine with performance monitoring
type PerformanceWrapper struct {
	engine *Engine
	log    *zap.Logger

	mu               sync.Mutex
	totalRequests    int64
	totalDuration    time.Duration
	slowRequestCount int64
}

// NewPerformanceWrapper creates a wrapper around an engine
func NewPerformanceWrapper(engine *Engine, log *zap.Logger) *PerformanceWrapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &PerformanceWrapper{
		engine: engine,
		log:    log.Named("perf"),
	}
}

// Calculate wraps the engine's Calculate with performance monitoring
func (pw *PerformanceWrapper) Calculate(ctx context.Context, contracts []Contract) ([]Result, error) {
	start := time.Now()
	results, err := pw.engine.Calculate(ctx, contracts)
	pw.recordRequest("Calculate", len(contracts), time.Since(start))
	return results, err
}

// Heatmap wraps the engine's Heatmap with performance monitoring
func (pw *PerformanceWrapper) Heatmap(ctx context.Context, req HeatmapRequest) (*Heatmap, error) {
	start := time.Now()
	hm, err := pw.engine.Heatmap(ctx, req)
	pw.recordRequest("Heatmap", req.Cells(), time.Since(start))
	return hm, err
}

// recordRequest updates performance statistics
func (pw *PerformanceWrapper) recordRequest(op string, size int, duration time.Duration) {
	pw.mu.Lock()
	pw.totalRequests++
	pw.totalDuration += duration
	slow := duration > slowRequest
	if slow {
		pw.slowRequestCount++
	}
	pw.mu.Unlock()

	pw.log.Debug("📡 priced", zap.String("op", op), zap.Int("contracts", size), zap.Duration("took", duration))
	if slow {
		pw.log.Warn("⚠️ slow pricing request", zap.String("op", op), zap.Int("contracts", size), zap.Duration("took", duration))
	}
}

// Stats returns current performance statistics
func (pw *PerformanceWrapper) Stats() Stats {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	s := Stats{
		TotalRequests: pw.totalRequests,
		TotalDuration: pw.totalDuration,
		SlowRequests:  pw.slowRequestCount,
		ExecutionMode: pw.engine.ExecutionMode(),
		Workers:       pw.engine.Workers(),
	}
	if s.TotalRequests > 0 {
		s.AverageDuration = time.Duration(int64(s.TotalDuration) / s.TotalRequests)
	}
	return s
}

// GetPerformanceStats renders the statistics for logs and the terminal
func (pw *PerformanceWrapper) GetPerformanceStats() string {
	s := pw.Stats()
	return fmt.Sprintf(`
📊 Pricing Engine Performance Stats
===================================
Execution Mode:    %s (%d workers)
Total Requests:    %d
Average Duration:  %v
Total Time:        %v
Slow Requests:     %d (>%v)
Slow Request %%:    %.1f%%
`,
		s.ExecutionMode, s.Workers,
		s.TotalRequests,
		s.AverageDuration,
		s.TotalDuration,
		s.SlowRequests, slowRequest,
		float64(s.SlowRequests)/float64(max(s.TotalRequests, 1))*100,
	)
}

// Close logs a final performance report
func (pw *PerformanceWrapper) Close() {
	if pw.Stats().TotalRequests > 0 {
		pw.log.Info("📊 Pricing performance report" + pw.GetPerformanceStats())
	}
}
