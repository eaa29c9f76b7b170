package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultLeeway is how long before exp a token is treated as expired.
const DefaultLeeway = 30 * time.Second

// Refresher exchanges a stale token for a new one.
type Refresher interface {
	Refresh(ctx context.Context, stale string) (string, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, stale string) (string, error)

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context, stale string) (string, error) {
	return f(ctx, stale)
}

// ExpiresAt returns the exp claim of a JWT without verifying its signature.
// ok is false when the token carries no exp claim.
func ExpiresAt(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	nd, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if nd == nil {
		return time.Time{}, false, nil
	}
	return nd.Time, true, nil
}

// RefreshingTokenConfig configures a RefreshingToken.
type RefreshingTokenConfig struct {
	// Source provides the initial token.
	Source TokenSource

	// Refresher is called when the current token is expired. Without one,
	// an expired token fails with ErrTokenExpired.
	Refresher Refresher

	// Leeway before exp. Default: DefaultLeeway.
	Leeway time.Duration

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// RefreshingToken serves a JWT and refreshes it once it nears expiry.
// Concurrent callers that find the token expired share one refresh.
type RefreshingToken struct {
	source    TokenSource
	refresher Refresher
	leeway    time.Duration
	now       func() time.Time
	group     singleflight.Group

	mu      sync.Mutex
	current string
}

// NewRefreshingToken creates a RefreshingToken.
func NewRefreshingToken(cfg RefreshingTokenConfig) (*RefreshingToken, error) {
	if cfg.Source == nil {
		return nil, ErrNilSource
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RefreshingToken{
		source:    cfg.Source,
		refresher: cfg.Refresher,
		leeway:    cfg.Leeway,
		now:       cfg.Now,
	}, nil
}

// Source returns the wrapped source.
func (r *RefreshingToken) Source() TokenSource {
	return r.source
}

// Token returns a token that is not expired, refreshing if needed.
// Tokens without an exp claim are served as-is.
func (r *RefreshingToken) Token(ctx context.Context) (string, error) {
	tok, err := r.load(ctx)
	if err != nil {
		return "", err
	}
	if !r.expired(tok) {
		return tok, nil
	}
	if r.refresher == nil {
		return "", ErrTokenExpired
	}

	// The shared refresh outlives any single caller; each caller stops
	// waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan("refresh", func() (any, error) {
		fresh, err := r.refresher.Refresh(shared, tok)
		if err != nil {
			return "", fmt.Errorf("auth: refresh: %w", err)
		}
		if fresh == "" {
			return "", ErrMissingCredentials
		}
		r.mu.Lock()
		r.current = fresh
		r.mu.Unlock()
		return fresh, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *RefreshingToken) load(ctx context.Context) (string, error) {
	r.mu.Lock()
	tok := r.current
	r.mu.Unlock()
	if tok != "" {
		return tok, nil
	}
	return r.source.Token(ctx)
}

// expired treats malformed tokens as opaque and never expired.
func (r *RefreshingToken) expired(tok string) bool {
	exp, ok, err := ExpiresAt(tok)
	if err != nil || !ok {
		return false
	}
	return !r.now().Add(r.leeway).Before(exp)
}
