package cache

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is applied when a caller does not specify a TTL.
const DefaultTTL = 60 * time.Second

// Policy configures expiry defaults.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default policy.
// DefaultTTL: 60 seconds, MaxTTL: unbounded
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: DefaultTTL}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// IsCacheableMethod reports whether results of method may be served from
// and written to the store. Only retrieval methods qualify; an empty method
// means GET.
func IsCacheableMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}
