package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is an in-memory Store with lazy expiry.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	policy     Policy
	now        func() time.Time
	maxEntries int

	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
	evicted atomic.Int64
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithPolicy sets the TTL policy. The default is DefaultPolicy().
func WithPolicy(p Policy) Option {
	return func(s *MemoryStore) {
		s.policy = p
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxEntries bounds the store size. When a new key would exceed the
// bound, the entry closest to expiry is evicted first. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		policy:  DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a live entry. An entry read at or after its expiry is
// removed and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return Entry{}, false
	}

	if !s.now().Before(entry.expiresAt) {
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		s.mu.Lock()
		current, still := s.entries[key]
		if still && !s.now().Before(current.expiresAt) {
			delete(s.entries, key)
			s.expired.Add(1)
			still = false
		}
		s.mu.Unlock()

		if !still {
			s.misses.Add(1)
			return Entry{}, false
		}
		entry = current
	}

	s.hits.Add(1)
	return Entry{Key: key, Body: entry.body, ExpiresAt: entry.expiresAt}, true
}

// Set stores body with the given TTL. ttl <= 0 uses the policy default.
func (s *MemoryStore) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ttl = s.policy.EffectiveTTL(ttl)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[key] = &memoryEntry{
		body:      body,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Delete removes a value from the store. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// reclaimed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictLocked drops expired entries, or the single entry closest to expiry
// when nothing has expired.
func (s *MemoryStore) evictLocked(now time.Time) {
	var (
		victim   string
		earliest time.Time
		dropped  bool
	)
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			s.expired.Add(1)
			dropped = true
			continue
		}
		if victim == "" || e.expiresAt.Before(earliest) {
			victim, earliest = k, e.expiresAt
		}
	}
	if dropped || victim == "" {
		return
	}
	delete(s.entries, victim)
	s.evicted.Add(1)
}

// Stats returns cumulative store counters.
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
		Evicted: s.evicted.Load(),
	}
}

// Stats contains store statistics.
type Stats struct {
	Hits    int64
	Misses  int64
	Expired int64 // removed because their TTL elapsed
	Evicted int64 // removed to honor WithMaxEntries
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
