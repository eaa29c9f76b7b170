package auth

import (
	"context"
	"strings"
)

// TokenSource yields the bearer token to attach to a request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: an empty token is reported as ErrMissingCredentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the token, or ErrMissingCredentials when it is blank.
func (s StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", ErrMissingCredentials
	}
	return tok, nil
}
