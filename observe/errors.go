package observe

import "errors"

// Configuration errors. Config.Validate wraps them with the offending value.
var (
	ErrInvalidSamplePct       = errors.New("observe: tracing.sample_pct must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidInterval        = errors.New("observe: metrics.interval must not be negative")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidAttribute       = errors.New("observe: invalid resource attribute")
)

// ErrNilObserver indicates a nil Observer was provided.
var ErrNilObserver = errors.New("observe: observer is nil")
