package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/querykit/auth"
	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/observe"
	"github.com/jonwraymond/querykit/query"
	"github.com/jonwraymond/querykit/transport"
)

// Visibility sources.
const (
	SourceManual  = "manual"
	SourceProcess = "process"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration.
type Config struct {
	Query      QueryConfig      `yaml:"query"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Transport  TransportConfig  `yaml:"transport"`
	Auth       AuthConfig       `yaml:"auth"`
	Observe    observe.Config   `yaml:"observe"`
}

// QueryConfig holds engine defaults and store bounds.
type QueryConfig struct {
	// TTL is the default cache duration for successful reads.
	TTL time.Duration `yaml:"ttl"`

	// RefetchOnVisibilityRegained is the default for subscriptions.
	RefetchOnVisibilityRegained bool `yaml:"refetch_on_visibility_regained"`

	// MaxEntries bounds the store. Zero means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// SweepInterval runs a background sweep of expired entries. Zero disables it.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// VisibilityConfig selects where visibility changes come from.
type VisibilityConfig struct {
	Initial bool   `yaml:"initial"`
	Source  string `yaml:"source"` // manual|process
}

// TransportConfig configures the HTTP client.
type TransportConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig enables the circuit breaker when MaxFailures > 0.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// AuthConfig selects the bearer token. At most one field may be set.
type AuthConfig struct {
	// Token is expanded strictly against the environment, e.g. "${API_TOKEN}".
	Token string `yaml:"token"`

	// TokenFile is read at startup and re-read when it changes.
	TokenFile string `yaml:"token_file"`

	// Refresh exchanges the token at an endpoint once its JWT exp is near.
	Refresh RefreshConfig `yaml:"refresh"`
}

// RefreshConfig enables token refresh when URL is set.
type RefreshConfig struct {
	URL    string        `yaml:"url"`
	Leeway time.Duration `yaml:"leeway"` // default auth.DefaultLeeway
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Query: QueryConfig{
			TTL:                         cache.DefaultTTL,
			RefetchOnVisibilityRegained: true,
		},
		Visibility: VisibilityConfig{
			Initial: false,
			Source:  SourceManual,
		},
		Transport: TransportConfig{
			Timeout: 30 * time.Second,
		},
		Observe: observe.Config{
			ServiceName: observe.DefaultServiceName,
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints.
func (c *Config) Validate() error {
	switch {
	case c.Query.TTL < 0:
		return fmt.Errorf("%w: query.ttl must not be negative", ErrInvalid)
	case c.Query.MaxEntries < 0:
		return fmt.Errorf("%w: query.max_entries must not be negative", ErrInvalid)
	case c.Query.SweepInterval < 0:
		return fmt.Errorf("%w: query.sweep_interval must not be negative", ErrInvalid)
	case c.Transport.Timeout < 0:
		return fmt.Errorf("%w: transport.timeout must not be negative", ErrInvalid)
	case c.Transport.Breaker.MaxFailures < 0:
		return fmt.Errorf("%w: transport.breaker.max_failures must not be negative", ErrInvalid)
	case c.Transport.Breaker.ResetTimeout < 0:
		return fmt.Errorf("%w: transport.breaker.reset_timeout must not be negative", ErrInvalid)
	case c.Auth.Token != "" && c.Auth.TokenFile != "":
		return fmt.Errorf("%w: auth.token and auth.token_file are mutually exclusive", ErrInvalid)
	case c.Auth.Refresh.URL != "" && c.Auth.Token == "" && c.Auth.TokenFile == "":
		return fmt.Errorf("%w: auth.refresh needs auth.token or auth.token_file", ErrInvalid)
	case c.Auth.Refresh.Leeway < 0:
		return fmt.Errorf("%w: auth.refresh.leeway must not be negative", ErrInvalid)
	}

	switch c.Visibility.Source {
	case SourceManual, SourceProcess, "":
	default:
		return fmt.Errorf("%w: unknown visibility.source %q", ErrInvalid, c.Visibility.Source)
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalid, err)
	}
	return nil
}

// QueryDefaults returns the engine defaults described by c.
func (c *Config) QueryDefaults() query.Options {
	return query.Options{
		TTL:                         c.Query.TTL,
		RefetchOnVisibilityRegained: query.Bool(c.Query.RefetchOnVisibilityRegained),
	}
}

// Store builds the memory store described by c.
func (c *Config) Store() *cache.MemoryStore {
	var opts []cache.Option
	if c.Query.TTL > 0 {
		opts = append(opts, cache.WithPolicy(cache.Policy{DefaultTTL: c.Query.TTL}))
	}
	if c.Query.MaxEntries > 0 {
		opts = append(opts, cache.WithMaxEntries(c.Query.MaxEntries))
	}
	return cache.NewMemoryStore(opts...)
}

// TokenSource returns the configured credentials, or nil when none are set.
// With auth.refresh set, the source is wrapped in an auth.RefreshingToken.
func (c *Config) TokenSource() (auth.TokenSource, error) {
	var src auth.TokenSource
	switch {
	case c.Auth.Token != "":
		src = auth.EnvToken(c.Auth.Token)
	case c.Auth.TokenFile != "":
		ft, err := auth.NewFileToken(c.Auth.TokenFile)
		if err != nil {
			return nil, err
		}
		src = ft
	default:
		return nil, nil
	}

	if c.Auth.Refresh.URL == "" {
		return src, nil
	}
	return auth.NewRefreshingToken(auth.RefreshingTokenConfig{
		Source: src,
		Refresher: &auth.EndpointRefresher{
			URL:    c.Auth.Refresh.URL,
			Client: &http.Client{Timeout: c.Transport.Timeout},
		},
		Leeway: c.Auth.Refresh.Leeway,
	})
}

// ObserveConfig returns the telemetry config with resource attributes
// describing this process's store and visibility source filled in.
func (c *Config) ObserveConfig() observe.Config {
	out := c.Observe
	if out.Resource.CacheBackend == "" {
		out.Resource.CacheBackend = "memory"
	}
	if out.Resource.VisibilitySource == "" {
		out.Resource.VisibilitySource = c.Visibility.Source
	}
	return out
}

// HTTPClient builds the transport described by c. A non-nil src attaches
// bearer credentials to every request.
func (c *Config) HTTPClient(src auth.TokenSource) *transport.HTTPClient {
	client := &http.Client{Timeout: c.Transport.Timeout}
	if src != nil {
		client.Transport = auth.NewTransport(src, nil)
	}

	var breaker *transport.Breaker
	if c.Transport.Breaker.MaxFailures > 0 {
		breaker = transport.NewBreaker(transport.BreakerConfig{
			MaxFailures:  c.Transport.Breaker.MaxFailures,
			ResetTimeout: c.Transport.Breaker.ResetTimeout,
		})
	}

	return transport.NewHTTPClient(transport.HTTPConfig{
		BaseURL: c.Transport.BaseURL,
		Client:  client,
		Breaker: breaker,
	})
}
