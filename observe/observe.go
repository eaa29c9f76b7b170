package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/querykit/observe/exporters"
)

// DefaultServiceName names the service when Config.ServiceName is empty.
const DefaultServiceName = "querykit"

// Resource attribute keys describing how a querykit process is wired.
const (
	AttrCacheBackend     = attribute.Key("querykit.cache.backend")
	AttrVisibilitySource = attribute.Key("querykit.visibility.source")
)

// Config configures telemetry for one engine host.
type Config struct {
	ServiceName string         `yaml:"service_name"`
	Version     string         `yaml:"version"`
	Resource    ResourceConfig `yaml:"resource"`
	Tracing     TracingConfig  `yaml:"tracing"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Logging     LoggingConfig  `yaml:"logging"`

	// RegisterGlobal installs the providers as the otel globals, so
	// instrumented HTTP transports pick them up.
	RegisterGlobal bool `yaml:"register_global"`
}

// ResourceConfig describes the process on every exported span and metric.
type ResourceConfig struct {
	CacheBackend     string            `yaml:"cache_backend"`     // e.g. "memory"
	VisibilitySource string            `yaml:"visibility_source"` // e.g. "process"
	Attributes       map[string]string `yaml:"attributes"`
}

// TracingConfig configures spans for fetches and mutations.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|jaeger|stdout|none

	// SamplePct is the ratio of root fetches traced. Fetches inside a
	// sampled caller span follow the caller's decision.
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures fetch and cache-lookup metrics.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Exporter string        `yaml:"exporter"` // otlp|prometheus|stdout|none
	Interval time.Duration `yaml:"interval"` // push interval; 0 keeps the SDK default
}

// LoggingConfig configures the JSON logger.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug|info|warn|error
}

// Validate checks the enabled sections. Disabled sections are not inspected.
func (c *Config) Validate() error {
	if c.Tracing.Enabled {
		if !exporters.IsTracing(c.Tracing.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1 {
			return fmt.Errorf("%w: got %g", ErrInvalidSamplePct, c.Tracing.SamplePct)
		}
	}
	if c.Metrics.Enabled {
		if !exporters.IsMetrics(c.Metrics.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
		}
		if c.Metrics.Interval < 0 {
			return fmt.Errorf("%w: got %s", ErrInvalidInterval, c.Metrics.Interval)
		}
	}
	if c.Logging.Enabled {
		if _, err := ParseLogLevel(c.Logging.Level); err != nil {
			return err
		}
	}
	for k := range c.Resource.Attributes {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidAttribute)
		}
	}
	return nil
}

func (c *Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown is idempotent and reports the first shutdown's errors.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes and stops exporters.
	Shutdown(ctx context.Context) error
}

// ObserverOption tunes NewObserver.
type ObserverOption func(*observerOptions)

type observerOptions struct {
	logW    io.Writer
	exportW io.Writer
}

// WithLogWriter sends log lines to w instead of os.Stderr.
func WithLogWriter(w io.Writer) ObserverOption {
	return func(o *observerOptions) { o.logW = w }
}

// WithExportWriter sends console exporter output to w instead of os.Stderr.
func WithExportWriter(w io.Writer) ObserverOption {
	return func(o *observerOptions) { o.exportW = w }
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	once    sync.Once
	stopErr error
}

// NewObserver builds tracer and meter providers over a shared resource.
// Disabled subsystems get no-op implementations.
func NewObserver(ctx context.Context, cfg Config, opts ...ObserverOption) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := observerOptions{logW: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}
	expOpts := exporters.Options{Writer: o.exportW, Interval: cfg.Metrics.Interval}
	name := cfg.serviceName()

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(name),
		meter:  metricnoop.NewMeterProvider().Meter(name),
		logger: NewNoopLogger(),
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, expOpts)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		popts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct))),
		}
		if exp != nil {
			popts = append(popts, sdktrace.WithBatcher(exp))
		}
		obs.tp = sdktrace.NewTracerProvider(popts...)
		obs.tracer = obs.tp.Tracer(name)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, expOpts)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		mopts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			mopts = append(mopts, sdkmetric.WithReader(reader))
		}
		obs.mp = sdkmetric.NewMeterProvider(mopts...)
		obs.meter = obs.mp.Meter(name)
	}

	if cfg.Logging.Enabled {
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, o.logW)
	}

	if cfg.RegisterGlobal {
		if obs.tp != nil {
			otel.SetTracerProvider(obs.tp)
		}
		if obs.mp != nil {
			otel.SetMeterProvider(obs.mp)
		}
	}
	return obs, nil
}

// newResource merges the service identity, the querykit wiring and any
// user attributes. User attributes never override the service name.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.serviceName())}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	if cfg.Resource.CacheBackend != "" {
		attrs = append(attrs, AttrCacheBackend.String(cfg.Resource.CacheBackend))
	}
	if cfg.Resource.VisibilitySource != "" {
		attrs = append(attrs, AttrVisibilitySource.String(cfg.Resource.VisibilitySource))
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Resource.Attributes)) {
		if attribute.Key(k) == semconv.ServiceNameKey {
			continue
		}
		attrs = append(attrs, attribute.String(k, cfg.Resource.Attributes[k]))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.once.Do(func() {
		var errs []error
		if o.tp != nil {
			if err := o.tp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider: %w", err))
			}
		}
		if o.mp != nil {
			if err := o.mp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("meter provider: %w", err))
			}
		}
		o.stopErr = errors.Join(errs...)
	})
	return o.stopErr
}
