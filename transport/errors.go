package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport operations.
var (
	// ErrInvalidJSON indicates a response body that is not valid JSON.
	ErrInvalidJSON = errors.New("transport: body is not valid JSON")

	// ErrNilResponse indicates a fetch returned neither a response nor an error.
	ErrNilResponse = errors.New("transport: no response")

	// ErrCircuitOpen indicates the breaker rejected the request.
	ErrCircuitOpen = errors.New("transport: circuit breaker is open")
)

// NetworkError reports a failed exchange for which no response exists.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
