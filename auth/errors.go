package auth

import "errors"

// Sentinel errors for credential handling.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrMissingEnv         = errors.New("auth: missing required environment variables")
	ErrNilSource          = errors.New("auth: token source is nil")
	ErrRefreshFailed      = errors.New("auth: token refresh failed")
)
