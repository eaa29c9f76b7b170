package visibility

import (
	"context"
	"errors"
	"sync"
)

// ErrNilSignal is returned by Bind when no signal is supplied.
var ErrNilSignal = errors.New("visibility: signal is nil")

// Source reports host visibility transitions.
//
// Contract:
// - Watch blocks until ctx is done, calling onChange for every reported
//   visibility value, and detaches from the host before returning.
// - Errors: Watch returns nil on cancellation.
type Source interface {
	Watch(ctx context.Context, onChange func(visible bool)) error
}

// Bind feeds src into sig until ctx is done.
func Bind(ctx context.Context, src Source, sig *Signal) error {
	if sig == nil {
		return ErrNilSignal
	}
	return src.Watch(ctx, sig.Set)
}

// ManualSource is a Source driven programmatically, for embedding hosts and
// tests.
type ManualSource struct {
	mu       sync.Mutex
	watchers map[int]func(bool)
	next     int
}

// NewManualSource creates an empty ManualSource.
func NewManualSource() *ManualSource {
	return &ManualSource{watchers: make(map[int]func(bool))}
}

// Watch implements Source.
func (m *ManualSource) Watch(ctx context.Context, onChange func(visible bool)) error {
	m.mu.Lock()
	id := m.next
	m.next++
	m.watchers[id] = onChange
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}

// Report delivers a visibility value to every active watcher.
func (m *ManualSource) Report(visible bool) {
	m.mu.Lock()
	fns := make([]func(bool), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(visible)
	}
}

// Watchers returns the number of active watchers.
func (m *ManualSource) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}
