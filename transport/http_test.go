package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/users/1" {
			t.Errorf("Path = %s, want /api/users/1", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
			t.Errorf("Cache-Control = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/api/"})
	resp, err := Get(c, "/users/1")(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !resp.OK() {
		t.Fatalf("Status = %d", resp.Status)
	}
	raw, err := resp.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if string(raw) != `{"id":1}` {
		t.Errorf("JSON() = %s", raw)
	}
}

func TestHTTPClient_SendJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"ada"}` {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":2}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	send := Send(c, "post", "users")
	resp, err := send(context.Background(), map[string]string{"name": "ada"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", resp.Status)
	}
	if resp.StatusText != "Created" {
		t.Errorf("StatusText = %q, want Created", resp.StatusText)
	}
}

func TestHTTPClient_ReaderBodyKeepsCallerContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "text/plain" {
			t.Errorf("Content-Type = %q, want text/plain", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "/note",
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestHTTPClient_NonOKIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	resp, err := c.Do(context.Background(), Request{Path: "/missing"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.OK() || resp.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
}

func TestHTTPClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: url, Timeout: time.Second})
	resp, err := c.Do(context.Background(), Request{Path: "/x"})
	if resp != nil {
		t.Error("response should be nil on network failure")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %T %v, want *NetworkError", err, err)
	}
	if netErr.Method != http.MethodGet {
		t.Errorf("Method = %q", netErr.Method)
	}
}

func TestHTTPClient_EncodeError(t *testing.T) {
	c := NewHTTPClient(HTTPConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Do(context.Background(), Request{Method: "POST", Body: make(chan int)})
	if err == nil {
		t.Fatal("expected encode error")
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		t.Error("encode failures happen before the wire and are not network errors")
	}
}

func TestHTTPClient_BreakerFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	br := NewBreaker(BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Breaker: br})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Do(ctx, Request{Path: "/"}); err != nil {
			t.Fatalf("Do() #%d error = %v", i, err)
		}
	}

	_, err := c.Do(ctx, Request{Path: "/"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Do() with open breaker = %v, want ErrCircuitOpen", err)
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Error("breaker rejection should be a *NetworkError")
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
}

func TestHTTPClient_AbsolutePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct" {
			t.Errorf("Path = %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: "http://example.invalid"})
	if _, err := c.Do(context.Background(), Request{Path: srv.URL + "/direct"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}
