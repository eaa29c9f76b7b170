package visibility

import (
	"sync"
)

// Listener receives the new value of a Signal after each change.
type Listener func(active bool)

// Signal is a boolean that notifies listeners when it changes.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Delivery: listeners run synchronously on the goroutine calling Set,
//   outside the signal's lock, in subscription order.
// - Cancellation: the function returned by Subscribe detaches the listener
//   and is safe to call more than once.
type Signal struct {
	mu        sync.Mutex
	active    bool
	nextID    uint64
	listeners []subscriber
}

type subscriber struct {
	id uint64
	fn Listener
}

// NewSignal creates a Signal with the given initial value.
func NewSignal(initial bool) *Signal {
	return &Signal{active: initial}
}

// Active returns the current value.
func (s *Signal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Set updates the value. Listeners are notified only when it changes.
func (s *Signal) Set(active bool) {
	s.mu.Lock()
	if s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(active)
	}
}

// Subscribe registers fn and returns a function that detaches it.
func (s *Signal) Subscribe(fn Listener) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Listeners returns the number of attached listeners.
func (s *Signal) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
