package transport

import (
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every request through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests until ResetTimeout elapses.
	BreakerOpen
	// BreakerHalfOpen lets a single probe through.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// OnStateChange is called with the lock released after each transition.
	OnStateChange func(from, to BreakerState)

	// Now replaces time.Now, mainly for tests.
	Now func() time.Time
}

// Breaker fails requests fast while an upstream is failing. It only gates
// requests; it never retries them.
type Breaker struct {
	config BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
	probeActive bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{config: config}
}

// Allow reports whether a request may proceed. It returns ErrCircuitOpen
// when the breaker is open or a half-open probe is already in flight.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	from := b.state
	to := b.currentLocked()
	var err error
	switch to {
	case BreakerOpen:
		err = ErrCircuitOpen
	case BreakerHalfOpen:
		if b.probeActive {
			err = ErrCircuitOpen
		} else {
			b.probeActive = true
		}
	}
	b.mu.Unlock()

	b.notify(from, to)
	return err
}

// Record reports the outcome of an allowed request.
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case BreakerClosed:
		if !failed {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.state = BreakerOpen
			b.openedAt = b.config.Now()
		}
	case BreakerHalfOpen:
		b.probeActive = false
		if failed {
			b.state = BreakerOpen
			b.openedAt = b.config.Now()
		} else {
			b.state = BreakerClosed
			b.failures = 0
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	from := b.state
	to := b.currentLocked()
	b.mu.Unlock()

	b.notify(from, to)
	return to
}

func (b *Breaker) currentLocked() BreakerState {
	if b.state == BreakerOpen && b.config.Now().Sub(b.openedAt) >= b.config.ResetTimeout {
		b.state = BreakerHalfOpen
		b.probeActive = false
	}
	return b.state
}

func (b *Breaker) notify(from, to BreakerState) {
	if from != to && b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}
