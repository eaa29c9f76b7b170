package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransport_AttachesBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := NewTransport(StaticToken("abc"), nil).Client()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if got != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("caller's request was modified")
	}
}

func TestTransport_KeepsExplicitHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	called := false
	src := TokenSourceFunc(func(context.Context) (string, error) {
		called = true
		return "ignored", nil
	})
	tr := &Transport{Source: src, Scheme: "Token"}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	resp, err := tr.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if got != "Basic dXNlcjpwdw==" || called {
		t.Errorf("Authorization = %q, source called = %v", got, called)
	}
}

func TestTransport_TokenErrorAborts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	client := NewTransport(StaticToken(""), nil).Client()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Do() error = %v, want ErrMissingCredentials", err)
	}
	if hits != 0 {
		t.Errorf("server was hit %d times", hits)
	}
}

func TestTransport_CustomScheme(t *testing.T) {
	var got string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
	})
	tr := &Transport{Source: StaticToken("k"), Base: base, Scheme: "Token"}

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	if got != "Token k" {
		t.Errorf("Authorization = %q, want Token k", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
