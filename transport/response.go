package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Response is a received reply with a lazily read, single-read body.
//
// Contract:
// - Concurrency: body accessors are safe for concurrent use; the body is
//   read from the wire once and the bytes are shared.
// - Ownership: Bytes returns the cached slice; callers must not mutate it.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header

	body io.ReadCloser
	once sync.Once
	data []byte
	err  error
}

// NewResponse wraps a status and body. body may be nil.
func NewResponse(status int, header http.Header, body io.ReadCloser) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     header,
		body:       body,
	}
}

// NewJSONResponse builds a response whose body is v encoded as JSON.
func NewJSONResponse(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return NewResponse(status, h, io.NopCloser(bytes.NewReader(data))), nil
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Bytes reads the body on first use and returns the cached bytes after.
func (r *Response) Bytes() ([]byte, error) {
	r.once.Do(func() {
		if r.body == nil {
			return
		}
		r.data, r.err = io.ReadAll(r.body)
		_ = r.body.Close()
		r.body = nil
	})
	return r.data, r.err
}

// JSON returns the body as validated raw JSON. An empty body yields nil.
func (r *Response) JSON() (json.RawMessage, error) {
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w (status %d)", ErrInvalidJSON, r.Status)
	}
	return json.RawMessage(data), nil
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	raw, err := r.JSON()
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}
	return json.Unmarshal(raw, v)
}

// Close releases an unread body.
func (r *Response) Close() error {
	var err error
	r.once.Do(func() {
		if r.body != nil {
			err = r.body.Close()
			r.body = nil
		}
	})
	return err
}
