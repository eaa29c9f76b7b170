package query

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/querykit/transport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func jsonResponse(status int, body string) *transport.Response {
	return transport.NewResponse(status, nil, io.NopCloser(strings.NewReader(body)))
}

// counter is a fetch operation that returns body and counts invocations.
type counter struct {
	calls atomic.Int64
	body  atomic.Value
}

func newCounter(body string) *counter {
	c := &counter{}
	c.body.Store(body)
	return c
}

func (c *counter) Fetch(ctx context.Context) (*transport.Response, error) {
	c.calls.Add(1)
	return jsonResponse(200, c.body.Load().(string)), nil
}

func (c *counter) Calls() int64 {
	return c.calls.Load()
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for load to finish")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

// recorder collects OnStateChange snapshots.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
