package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records fetch and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordFetch records a settled fetch or mutation.
	RecordFetch(ctx context.Context, meta QueryMeta, duration time.Duration, err error)

	// RecordCacheLookup records whether a cache-eligible read was served
	// from the store.
	RecordCacheLookup(ctx context.Context, meta QueryMeta, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	hitCount     metric.Int64Counter
	missCount    metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"query.fetch.total",
		metric.WithDescription("Total number of fetches"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"query.fetch.errors",
		metric.WithDescription("Total number of failed fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	hitCount, err := meter.Int64Counter(
		"query.cache.hits",
		metric.WithDescription("Reads served from the cache"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	missCount, err := meter.Int64Counter(
		"query.cache.misses",
		metric.WithDescription("Cache-eligible reads that required a fetch"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"query.fetch.duration_ms",
		metric.WithDescription("Fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		hitCount:     hitCount,
		missCount:    missCount,
		durationHist: durationHist,
	}, nil
}

// RecordFetch records metrics for a settled fetch.
func (m *metricsImpl) RecordFetch(ctx context.Context, meta QueryMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("query.kind", meta.OperationKind()))

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordCacheLookup records a cache hit or miss.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta QueryMeta, hit bool) {
	opt := metric.WithAttributes(attribute.String("query.kind", meta.OperationKind()))
	if hit {
		m.hitCount.Add(ctx, 1, opt)
		return
	}
	m.missCount.Add(ctx, 1, opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that discards everything.
func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordFetch(context.Context, QueryMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, QueryMeta, bool)         {}
