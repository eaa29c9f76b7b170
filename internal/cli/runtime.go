package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querykit/auth"
	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/config"
	"github.com/jonwraymond/querykit/observe"
	"github.com/jonwraymond/querykit/query"
	"github.com/jonwraymond/querykit/transport"
	"github.com/jonwraymond/querykit/visibility"
)

// runtime holds the components one command invocation wires together.
type runtime struct {
	cfg    *config.Config
	obs    observe.Observer
	log    observe.Logger
	client *transport.HTTPClient
	store  *cache.MemoryStore
	signal *visibility.Signal

	ctx    context.Context
	cancel context.CancelFunc
}

// loadConfig reads --config (or the defaults) and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("base-url") {
		cfg.Transport.BaseURL, _ = cmd.Flags().GetString("base-url")
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Observe.Logging = observe.LoggingConfig{Enabled: true, Level: "debug"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRuntime wires the configured components. Logs and console telemetry go
// to stderr; stdout is reserved for state lines.
func newRuntime(ctx context.Context, cfg *config.Config, stderr io.Writer) (*runtime, error) {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig(),
		observe.WithLogWriter(stderr), observe.WithExportWriter(stderr))
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	src, err := cfg.TokenSource()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	bg, cancel := context.WithCancel(ctx)
	rt := &runtime{
		cfg:    cfg,
		obs:    obs,
		log:    obs.Logger(),
		client: cfg.HTTPClient(src),
		store:  cfg.Store(),
		signal: visibility.NewSignal(cfg.Visibility.Initial),
		ctx:    bg,
		cancel: cancel,
	}

	base := src
	if refreshing, ok := src.(*auth.RefreshingToken); ok {
		base = refreshing.Source()
	}
	if ft, ok := base.(*auth.FileToken); ok {
		go rt.watchToken(ft)
	}
	if cfg.Query.SweepInterval > 0 {
		go rt.store.RunJanitor(bg, cfg.Query.SweepInterval)
	}
	return rt, nil
}

func (r *runtime) watchToken(ft *auth.FileToken) {
	err := ft.Watch(r.ctx, func(err error) {
		if err != nil {
			r.log.Warn(r.ctx, "token reload failed", observe.Field{Key: "error", Value: err.Error()})
			return
		}
		r.log.Info(r.ctx, "token reloaded", observe.Field{Key: "path", Value: ft.Path()})
	})
	if err != nil {
		r.log.Warn(r.ctx, "token watch stopped", observe.Field{Key: "error", Value: err.Error()})
	}
}

// bindVisibility starts the configured visibility source.
func (r *runtime) bindVisibility() {
	if r.cfg.Visibility.Source != config.SourceProcess {
		return
	}
	go func() {
		if err := visibility.Bind(r.ctx, visibility.NewProcessSignalSource(), r.signal); err != nil {
			r.log.Warn(r.ctx, "visibility source failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}()
}

func (r *runtime) engine(defaults query.Options) (*query.Engine, error) {
	return query.New(r.store,
		query.WithDefaults(defaults),
		query.WithVisibility(r.signal),
		query.WithObserver(r.obs),
	)
}

func (r *runtime) Close() {
	r.cancel()
	_ = r.obs.Shutdown(context.Background())
}

// statePrinter writes one JSON line per state.
type statePrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newStatePrinter(w io.Writer) *statePrinter {
	return &statePrinter{enc: json.NewEncoder(w)}
}

func (p *statePrinter) print(st query.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.enc.Encode(st)
}
