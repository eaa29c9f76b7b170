package query

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/observe"
	"github.com/jonwraymond/querykit/visibility"
)

// Options configures a subscription. Zero fields inherit the engine
// defaults; the engine defaults themselves are never modified.
type Options struct {
	// TTL is how long a successful read stays cached. Zero inherits.
	TTL time.Duration

	// Method is the HTTP-style method of the fetch. Only retrieval methods
	// (GET, HEAD) consult and fill the cache.
	Method string

	// RefetchOnVisibilityRegained forces a cache-bypassing refetch when the
	// visibility signal turns active. Nil inherits.
	RefetchOnVisibilityRegained *bool

	OnSuccess     func(data json.RawMessage)
	OnError       func(err error)
	OnStateChange func(State)
}

// Bool returns a pointer to v, for RefetchOnVisibilityRegained.
func Bool(v bool) *bool {
	return &v
}

// DefaultOptions returns the built-in defaults: 60s TTL, GET, and refetch
// on visibility regained.
func DefaultOptions() Options {
	return Options{
		TTL:                         cache.DefaultTTL,
		Method:                      http.MethodGet,
		RefetchOnVisibilityRegained: Bool(true),
	}
}

// merge returns o with every non-zero field of over applied.
func (o Options) merge(over Options) Options {
	if over.TTL > 0 {
		o.TTL = over.TTL
	}
	if over.Method != "" {
		o.Method = over.Method
	}
	if over.RefetchOnVisibilityRegained != nil {
		v := *over.RefetchOnVisibilityRegained
		o.RefetchOnVisibilityRegained = &v
	}
	if over.OnSuccess != nil {
		o.OnSuccess = over.OnSuccess
	}
	if over.OnError != nil {
		o.OnError = over.OnError
	}
	if over.OnStateChange != nil {
		o.OnStateChange = over.OnStateChange
	}
	return o
}

func (o Options) refetchOnRegain() bool {
	return o.RefetchOnVisibilityRegained != nil && *o.RefetchOnVisibilityRegained
}

// Option configures an Engine or a Mutation.
type Option func(*settings)

type settings struct {
	defaults Options
	signal   *visibility.Signal
	tracer   observe.Tracer
	metrics  observe.Metrics
	logger   observe.Logger
	now      func() time.Time
	err      error
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

func (s *settings) middleware() *observe.Middleware {
	return observe.NewMiddleware(s.tracer, s.metrics, s.logger)
}

// WithDefaults sets engine-wide defaults merged under per-call Options.
func WithDefaults(o Options) Option {
	return func(s *settings) {
		s.defaults = s.defaults.merge(o)
	}
}

// WithVisibility attaches a visibility signal. Without one, visibility
// never triggers refetches.
func WithVisibility(sig *visibility.Signal) Option {
	return func(s *settings) {
		s.signal = sig
	}
}

// WithObserver takes tracer, meter and logger from obs.
func WithObserver(obs observe.Observer) Option {
	return func(s *settings) {
		if obs == nil {
			s.err = observe.ErrNilObserver
			return
		}
		metrics, err := observe.NewMetrics(obs.Meter())
		if err != nil {
			s.err = err
			return
		}
		s.tracer = observe.NewTracer(obs.Tracer())
		s.metrics = metrics
		s.logger = obs.Logger()
	}
}

// WithLogger sets the logger. Applied after WithObserver, it wins.
func WithLogger(l observe.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithClock sets the clock used for State.UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
