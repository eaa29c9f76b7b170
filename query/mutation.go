package query

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonwraymond/querykit/observe"
)

// Callbacks are invoked once per Mutate call after the state settles.
type Callbacks struct {
	OnSuccess func(data json.RawMessage)
	OnError   func(err error)
}

// Mutation runs a write operation and tracks its state.
//
// Contract:
//   - Concurrency: safe for concurrent use, but concurrent Mutate calls are
//     not serialized; the last one to settle determines State.
//   - Store: a Mutation never reads or writes a cache.
//   - Errors: failures are surfaced through State and OnError.
type Mutation struct {
	fn            MutateFunc
	mw            *observe.Middleware
	meta          observe.QueryMeta
	onStateChange func(State)
	now           func() time.Time

	mu    sync.Mutex
	state State
}

// NewMutation creates a Mutation around fn. Of the defaults, only Method
// (for telemetry) and OnStateChange apply.
func NewMutation(fn MutateFunc, opts ...Option) (*Mutation, error) {
	if fn == nil {
		return nil, ErrNilMutateFunc
	}
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &Mutation{
		fn:            fn,
		mw:            s.middleware(),
		meta:          observe.QueryMeta{Kind: observe.KindMutation, Method: s.defaults.Method},
		onStateChange: s.defaults.OnStateChange,
		now:           s.now,
	}, nil
}

// State returns a snapshot of the current state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mutate runs the operation with payload and blocks until it settles.
// The returned State is the one this call produced.
func (m *Mutation) Mutate(ctx context.Context, payload any, cb Callbacks) State {
	m.update(func(st *State) {
		st.IsLoading = true
		st.IsError = false
		st.Error = nil
	})

	var data json.RawMessage
	err := m.mw.Instrument(ctx, m.meta, func(ctx context.Context) error {
		var err error
		data, err = Resolve(m.fn(ctx, payload))
		return err
	})

	final := m.update(func(st *State) {
		if err == nil {
			st.Data = data
		} else {
			st.IsError = true
			st.Error = err
		}
		st.IsLoading = false
		st.UpdatedAt = m.now()
	})

	if err == nil {
		if cb.OnSuccess != nil {
			cb.OnSuccess(data)
		}
	} else if cb.OnError != nil {
		cb.OnError(err)
	}
	return final
}

func (m *Mutation) update(fn func(*State)) State {
	m.mu.Lock()
	fn(&m.state)
	snap := m.state
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(snap)
	}
	return snap
}
