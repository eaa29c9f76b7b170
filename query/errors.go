package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for query operations.
var (
	// ErrNilFetch indicates Subscribe was called without a fetch operation.
	ErrNilFetch = errors.New("query: fetch operation is nil")

	// ErrNilMutateFunc indicates NewMutation was called without an operation.
	ErrNilMutateFunc = errors.New("query: mutate operation is nil")

	// ErrClosed indicates the engine has been closed.
	ErrClosed = errors.New("query: engine is closed")

	// ErrNoData indicates State.Decode was called before any data arrived.
	ErrNoData = errors.New("query: no data")
)

// Kind classifies a FetchError.
type Kind string

const (
	// KindNetwork means no response exists: the exchange failed on the wire
	// or the operation failed locally before producing one.
	KindNetwork Kind = "network"

	// KindRemote means a non-2xx response was received. Payload holds its
	// parsed body, if any.
	KindRemote Kind = "remote"

	// KindDecode means a 2xx response carried a body that is not JSON.
	KindDecode Kind = "decode"
)

// FetchError is the normalized failure surfaced through State.Error.
type FetchError struct {
	Kind    Kind
	Message string

	// Status is the response status for KindRemote and KindDecode.
	Status int

	// Payload is the drained error body of a KindRemote failure.
	Payload json.RawMessage

	// Err is the underlying cause, when one exists.
	Err error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("query: remote error: %s", e.Message)
	case KindDecode:
		return fmt.Sprintf("query: decode error: %s", e.Message)
	default:
		return fmt.Sprintf("query: network error: %s", e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError extracts a *FetchError from err.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
