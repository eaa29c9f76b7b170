package observe

import (
	"context"
	"time"
)

// Middleware wraps fetch execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Instrument runs fn inside a span, then records duration metrics and a log line.
func (m *Middleware) Instrument(ctx context.Context, meta QueryMeta, fn func(ctx context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordFetch(ctx, meta, duration, err)

	log := m.logger.WithQuery(meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		log.Warn(ctx, meta.OperationKind()+" failed", fields...)
	} else {
		log.Debug(ctx, meta.OperationKind()+" settled", fields...)
	}

	return err
}

// CacheLookup records a cache lookup outcome.
func (m *Middleware) CacheLookup(ctx context.Context, meta QueryMeta, hit bool) {
	m.metrics.RecordCacheLookup(ctx, meta, hit)
	m.logger.WithQuery(meta).Debug(ctx, "cache lookup", Field{Key: "hit", Value: hit})
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
