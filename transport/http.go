package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request describes one exchange.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is joined to the client's base URL unless it is absolute.
	Path string

	// Header values override the client defaults.
	Header http.Header

	// Body is sent as-is when it is an io.Reader, []byte or string, and
	// encoded as JSON otherwise.
	Body any
}

// Doer performs exchanges.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a non-nil error means no response exists and is a *NetworkError
//   for failures on the wire. A non-2xx status is not an error.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req Request) (*Response, error)

// Do implements Doer.
func (f DoerFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// BaseURL is prefixed to relative request paths.
	BaseURL string

	// Timeout bounds the whole exchange, including reading the body.
	// Ignored when Client is set. Zero means no timeout.
	Timeout time.Duration

	// Client is the underlying client. Its Transport is where credential
	// attachment (see package auth) belongs.
	Client *http.Client

	// Breaker, when set, gates every request.
	Breaker *Breaker
}

// HTTPClient is a Doer over net/http.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *Breaker
}

// DefaultHeaders are applied to every request before caller headers.
var DefaultHeaders = map[string]string{
	"Accept":        "application/json",
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		breaker: cfg.Breaker,
	}
}

// Do performs the exchange.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	url := c.resolve(req.Path)

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: encode body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: url, Err: err}
	}
	for k, v := range DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, &NetworkError{Method: method, URL: url, Err: err}
		}
	}

	httpResp, err := c.client.Do(httpReq)
	if c.breaker != nil {
		c.breaker.Record(err != nil || (httpResp != nil && httpResp.StatusCode >= 500))
	}
	if err != nil {
		return nil, &NetworkError{Method: method, URL: url, Err: err}
	}

	resp := NewResponse(httpResp.StatusCode, httpResp.Header, httpResp.Body)
	if text := statusText(httpResp.Status); text != "" {
		resp.StatusText = text
	}
	return resp, nil
}

func (c *HTTPClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || c.baseURL == "" {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case string:
		return strings.NewReader(b), "application/json", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// statusText strips the numeric prefix from "404 Not Found".
func statusText(status string) string {
	if i := strings.IndexByte(status, ' '); i >= 0 {
		return status[i+1:]
	}
	return ""
}

// Fetch returns a zero-argument fetch operation for req.
func Fetch(d Doer, req Request) func(context.Context) (*Response, error) {
	return func(ctx context.Context) (*Response, error) {
		return d.Do(ctx, req)
	}
}

// Get returns a fetch operation issuing GET path.
func Get(d Doer, path string) func(context.Context) (*Response, error) {
	return Fetch(d, Request{Method: http.MethodGet, Path: path})
}

// Send returns a one-argument operation issuing method path with the
// payload as body.
func Send(d Doer, method, path string) func(context.Context, any) (*Response, error) {
	return func(ctx context.Context, payload any) (*Response, error) {
		return d.Do(ctx, Request{Method: method, Path: path, Body: payload})
	}
}

// Ensure HTTPClient implements Doer
var _ Doer = (*HTTPClient)(nil)
