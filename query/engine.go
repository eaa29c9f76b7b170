package query

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/observe"
)

// Engine coordinates subscriptions over a shared store.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Store: the engine reads and writes only through the injected Store;
//     several engines may share one.
//   - Errors: load failures are surfaced through State, never returned.
type Engine struct {
	store    cache.Store
	defaults Options
	mw       *observe.Middleware
	log      observe.Logger
	now      func() time.Time

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	detach func()
	closed bool
}

// New creates an Engine over store.
func New(store cache.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, cache.ErrNilStore
	}
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	mw := s.middleware()
	e := &Engine{
		store:    store,
		defaults: DefaultOptions().merge(s.defaults),
		mw:       mw,
		log:      mw.Logger(),
		now:      s.now,
		subs:     make(map[string]map[*Subscription]struct{}),
	}
	if s.signal != nil {
		e.detach = s.signal.Subscribe(e.visibilityChanged)
	}
	return e, nil
}

// Defaults returns a copy of the engine defaults.
func (e *Engine) Defaults() Options {
	return Options{}.merge(e.defaults)
}

// Subscribe registers a subscription for key and starts its first load
// before returning. The load is served from the store when the method is a
// retrieval method and a fresh entry exists.
//
// Fetches run with ctx. Cancelling ctx aborts in-flight exchanges and
// unsubscribes.
func (e *Engine) Subscribe(ctx context.Context, key string, fetch FetchFunc, opts Options) (*Subscription, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, ErrNilFetch
	}

	merged := e.defaults.merge(opts)
	sub := &Subscription{
		engine: e,
		ctx:    ctx,
		key:    key,
		fetch:  fetch,
		opts:   merged,
		meta:   observe.QueryMeta{Kind: observe.KindQuery, Key: key, Method: merged.Method},
		alive:  true,
		ready:  make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := e.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		e.subs[key] = set
	}
	set[sub] = struct{}{}
	e.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Unsubscribe)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()

	sub.load(false)
	return sub, nil
}

// Invalidate removes the cached entry for key. Idempotent.
func (e *Engine) Invalidate(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}

// Peek returns a copy of the cached payload for key, if fresh.
func (e *Engine) Peek(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, ok := e.store.Get(ctx, key)
	if !ok {
		return nil, false
	}
	out := make(json.RawMessage, len(entry.Body))
	copy(out, entry.Body)
	return out, true
}

// Revalidate invalidates key and force-refetches every live subscription
// of it, waiting until all of them settle or ctx ends.
func (e *Engine) Revalidate(ctx context.Context, key string) error {
	if err := e.Invalidate(ctx, key); err != nil {
		return err
	}

	var g errgroup.Group
	for _, sub := range e.subscriptions(key) {
		done := sub.load(true)
		g.Go(func() error {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Subscribers returns the number of live subscriptions for key.
func (e *Engine) Subscribers(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[key])
}

// Close detaches from the visibility signal and unsubscribes every live
// subscription. Subscribe fails with ErrClosed afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	detach := e.detach
	var live []*Subscription
	for _, set := range e.subs {
		for sub := range set {
			live = append(live, sub)
		}
	}
	e.mu.Unlock()

	if detach != nil {
		detach()
	}
	for _, sub := range live {
		sub.Unsubscribe()
	}
}

// visibilityChanged refetches opted-in subscriptions when the signal turns
// active. Signals only notify on change, so active means regained.
func (e *Engine) visibilityChanged(active bool) {
	if !active {
		return
	}

	var targets []*Subscription
	e.mu.Lock()
	for _, set := range e.subs {
		for sub := range set {
			if sub.opts.refetchOnRegain() {
				targets = append(targets, sub)
			}
		}
	}
	e.mu.Unlock()

	if len(targets) > 0 {
		e.log.Debug(context.Background(), "visibility regained",
			observe.Field{Key: "refetches", Value: len(targets)})
	}
	for _, sub := range targets {
		sub.load(true)
	}
}

func (e *Engine) subscriptions(key string) []*Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Subscription, 0, len(e.subs[key]))
	for sub := range e.subs[key] {
		out = append(out, sub)
	}
	return out
}

func (e *Engine) remove(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := e.subs[sub.key]
	delete(set, sub)
	if len(set) == 0 {
		delete(e.subs, sub.key)
	}
}
