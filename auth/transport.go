package auth

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that adds an Authorization header.
//
// Contract:
// - The caller's request is never modified; a clone carries the header.
// - A request that already has an Authorization header is sent unchanged.
// - A token error aborts the exchange before anything is sent.
type Transport struct {
	// Source provides the token. Required.
	Source TokenSource

	// Base is the underlying transport. Default: http.DefaultTransport.
	Base http.RoundTripper

	// Scheme prefixes the token. Default: "Bearer".
	Scheme string
}

// NewTransport wraps base with credentials from src.
func NewTransport(src TokenSource, base http.RoundTripper) *Transport {
	return &Transport{Source: src, Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.base().RoundTrip(req)
	}
	if t.Source == nil {
		closeBody(req)
		return nil, ErrNilSource
	}

	tok, err := t.Source.Token(req.Context())
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("auth: token: %w", err)
	}

	scheme := t.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", scheme+" "+tok)
	return t.base().RoundTrip(out)
}

// Client returns an http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrippers must close the request body even on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
