package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Entry is a cached query result.
type Entry struct {
	Key       string
	Body      []byte
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still visible at now.
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store holds serialized query results keyed by query identifier.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Expiry: Get never returns an entry whose ExpiresAt has been reached,
//   and removes such an entry as a side effect.
// - Errors: Get never errors; it returns (Entry{}, false) on miss.
// - Last writer wins: Set overwrites without version checks.
type Store interface {
	// Get retrieves a live entry. Returns (Entry{}, false) on miss or expiry.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores body under key for ttl. ttl <= 0 selects the store default.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error

	// Delete removes an entry. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
