package search

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/inkmatch/pkg/models"
)

const meterName = "github.com/thebtf/inkmatch/internal/search"

// MatchMetrics tracks matching statistics.
type MatchMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	failures metric.Int64Counter

	TotalRequests     int64
	TotalLatencyNs    int64
	CacheHits         int64
	CoalescedRequests int64
	Timeouts          int64
	SourceErrors      int64
	Fallbacks         int64
	DegradedResponses int64
}

func newMatchMetrics() *MatchMetrics {
	meter := otel.Meter(meterName)
	m := &MatchMetrics{}

	var err error
	if m.requests, err = meter.Int64Counter("inkmatch.match.requests",
		metric.WithDescription("Match requests by serving path")); err != nil {
		log.Warn().Err(err).Msg("Failed to create request counter")
	}
	if m.latency, err = meter.Float64Histogram("inkmatch.match.duration",
		metric.WithDescription("Match latency"), metric.WithUnit("ms")); err != nil {
		log.Warn().Err(err).Msg("Failed to create latency histogram")
	}
	if m.failures, err = meter.Int64Counter("inkmatch.source.failures",
		metric.WithDescription("Upstream source failures by source")); err != nil {
		log.Warn().Err(err).Msg("Failed to create failure counter")
	}
	return m
}

func (m *MatchMetrics) observe(ctx context.Context, path models.MatchPath, elapsed time.Duration) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatencyNs, elapsed.Nanoseconds())
	switch path {
	case models.PathFallback:
		atomic.AddInt64(&m.Fallbacks, 1)
	case models.PathDegraded:
		atomic.AddInt64(&m.DegradedResponses, 1)
	}

	attrs := metric.WithAttributes(attribute.String("path", string(path)))
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (m *MatchMetrics) sourceFailed(ctx context.Context, source string) {
	atomic.AddInt64(&m.SourceErrors, 1)
	if m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

// GetStats returns the current match statistics.
func (m *MatchMetrics) GetStats() map[string]any {
	total := atomic.LoadInt64(&m.TotalRequests)
	avgLatencyMs := float64(0)
	if total > 0 {
		avgLatencyMs = float64(atomic.LoadInt64(&m.TotalLatencyNs)) / float64(total) / 1e6
	}

	return map[string]any{
		"total_requests":     total,
		"cache_hits":         atomic.LoadInt64(&m.CacheHits),
		"coalesced_requests": atomic.LoadInt64(&m.CoalescedRequests),
		"timeouts":           atomic.LoadInt64(&m.Timeouts),
		"source_errors":      atomic.LoadInt64(&m.SourceErrors),
		"fallbacks":          atomic.LoadInt64(&m.Fallbacks),
		"degraded":           atomic.LoadInt64(&m.DegradedResponses),
		"avg_latency_ms":     avgLatencyMs,
	}
}
