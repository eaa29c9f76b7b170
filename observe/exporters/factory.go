// Package exporters builds OpenTelemetry span exporters and metric readers
// by name.
//
// Console exporters ("stdout") write to Options.Writer, which defaults to
// os.Stderr: querykit commands print query states on os.Stdout, and
// telemetry must not interleave with them. "none" and "" build nothing and
// return nil without an error.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	None       = "none"
	Stdout     = "stdout"
	OTLP       = "otlp"
	Jaeger     = "jaeger"
	Prometheus = "prometheus"
)

var (
	// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates a name no factory knows.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

var (
	tracingNames = []string{"", None, Stdout, OTLP, Jaeger}
	metricsNames = []string{"", None, Stdout, OTLP, Prometheus}
)

// IsTracing reports whether name is a supported span exporter.
func IsTracing(name string) bool { return slices.Contains(tracingNames, name) }

// IsMetrics reports whether name is a supported metric exporter.
func IsMetrics(name string) bool { return slices.Contains(metricsNames, name) }

// Options tunes exporter construction.
type Options struct {
	// Writer receives console exporter output. Default: os.Stderr.
	Writer io.Writer

	// Interval between pushes for periodic metric readers. Zero keeps the
	// SDK default.
	Interval time.Duration
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stderr
	}
	return o.Writer
}

func (o Options) periodic(exp sdkmetric.Exporter) sdkmetric.Reader {
	if o.Interval > 0 {
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(o.Interval))
	}
	return sdkmetric.NewPeriodicReader(exp)
}

// requireEnv fails unless one of keys is set.
func requireEnv(keys ...string) error {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: set one of %v", ErrEndpointNotConfigured, keys)
}

// NewTracingExporter creates the span exporter called name.
func NewTracingExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "", None:
		return nil, nil
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(opts.writer()))
	case OTLP:
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case Jaeger:
		// Jaeger ingests OTLP natively; only the endpoint variable differs.
		endpoint := os.Getenv("OTEL_EXPORTER_JAEGER_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_JAEGER_ENDPOINT", ErrEndpointNotConfigured)
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
	default:
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates the metric reader called name.
func NewMetricsReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	switch name {
	case "", None:
		return nil, nil
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.writer()))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return opts.periodic(exp), nil
	case OTLP:
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return opts.periodic(exp), nil
	case Prometheus:
		// Pull-based: the host serves the default registry.
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
}
