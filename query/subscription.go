package query

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/observe"
)

// Subscription is one live query. Obtain it from Engine.Subscribe.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Ordering: only the most recent load may settle the state; older
//     completions are dropped.
//   - Callbacks: OnStateChange, OnSuccess and OnError run without any
//     subscription lock held, so they may call Refetch or Unsubscribe.
//     OnStateChange calls are serialized and their snapshots never go
//     backwards. A snapshot published while another is being delivered is
//     queued and delivered by the goroutine already delivering.
type Subscription struct {
	engine *Engine
	ctx    context.Context
	key    string
	fetch  FetchFunc
	opts   Options
	meta   observe.QueryMeta

	mu      sync.Mutex
	stop    func() bool
	state   State
	gen     uint64
	version uint64
	alive   bool

	notifyMu   sync.Mutex
	queued     uint64
	pending    []State
	delivering bool

	ready     chan struct{}
	readyOnce sync.Once
}

// Key returns the cache key.
func (s *Subscription) Key() string {
	return s.key
}

// State returns a snapshot of the current state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once the first load settles or the subscription ends.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Refetch starts a cache-bypassing load. The returned channel is closed
// when that load finishes, whether or not its result was applied.
func (s *Subscription) Refetch() <-chan struct{} {
	return s.load(true)
}

// Unsubscribe ends the subscription. State resets to loading with no data,
// and in-flight completions are dropped. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.gen++
	s.version++
	s.state = State{IsLoading: true}
	stop := s.stop
	s.mu.Unlock()

	s.engine.remove(s)
	if stop != nil {
		stop()
	}
	s.markReady()
}

// load enters Pending and either settles from the store or starts the fetch
// in a goroutine.
func (s *Subscription) load(force bool) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		close(done)
		return done
	}
	s.gen++
	gen := s.gen
	s.version++
	s.state.IsLoading = true
	snap, version := s.state, s.version
	s.mu.Unlock()
	s.publish(snap, version)

	cacheable := cache.IsCacheableMethod(s.opts.Method)
	if cacheable && !force {
		entry, hit := s.engine.store.Get(s.ctx, s.key)
		s.engine.mw.CacheLookup(s.ctx, s.meta, hit)
		if hit {
			s.settle(gen, entry.Body, nil, false)
			close(done)
			return done
		}
	}

	go func() {
		defer close(done)
		var data json.RawMessage
		err := s.engine.mw.Instrument(s.ctx, s.meta, func(ctx context.Context) error {
			var err error
			data, err = Resolve(s.fetch(ctx))
			return err
		})
		s.settle(gen, data, err, cacheable)
	}()
	return done
}

// settle applies a completed load if it belongs to the current generation.
// Loading is cleared on both outcomes; Data is kept on failure.
func (s *Subscription) settle(gen uint64, data json.RawMessage, err error, writeBack bool) {
	s.mu.Lock()
	if !s.alive || gen != s.gen {
		s.mu.Unlock()
		s.engine.log.WithQuery(s.meta).Debug(s.ctx, "discarded superseded result")
		return
	}
	if err == nil {
		if writeBack {
			if serr := s.engine.store.Set(s.ctx, s.key, data, s.opts.TTL); serr != nil {
				s.engine.log.WithQuery(s.meta).Warn(s.ctx, "cache write failed",
					observe.Field{Key: "error", Value: serr.Error()})
			}
		}
		s.state.Data = data
		s.state.IsError = false
		s.state.Error = nil
	} else {
		s.state.IsError = true
		s.state.Error = err
	}
	s.state.IsLoading = false
	s.state.UpdatedAt = s.engine.now()
	s.version++
	snap, version := s.state, s.version
	s.mu.Unlock()

	s.publish(snap, version)
	if err == nil {
		if s.opts.OnSuccess != nil {
			s.opts.OnSuccess(data)
		}
	} else if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
	s.markReady()
}

func (s *Subscription) publish(snap State, version uint64) {
	if s.opts.OnStateChange == nil {
		return
	}
	s.notifyMu.Lock()
	if version <= s.queued {
		s.notifyMu.Unlock()
		return
	}
	s.queued = version
	s.pending = append(s.pending, snap)
	if s.delivering {
		s.notifyMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()
		s.opts.OnStateChange(next)
		s.notifyMu.Lock()
	}
	s.delivering = false
	s.notifyMu.Unlock()
}

func (s *Subscription) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
