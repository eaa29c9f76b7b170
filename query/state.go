package query

import (
	"encoding/json"
	"time"
)

// Status is a coarse view of a State.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is the observable state of a subscription or mutation.
//
// Data and Error survive a refetch: while a new attempt is in flight only
// IsLoading changes, and a failed attempt keeps the last good Data.
// Data may be shared with the store and must not be modified.
type State struct {
	Data      json.RawMessage `json:"data"`
	IsLoading bool            `json:"isLoading"`
	IsError   bool            `json:"isError"`
	Error     error           `json:"-"`

	// UpdatedAt is when the state last settled. Zero before the first settle.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Status derives the coarse status. Loading wins over any settled value.
func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return StatusPending
	case s.IsError:
		return StatusError
	case !s.UpdatedAt.IsZero():
		return StatusSuccess
	default:
		return StatusIdle
	}
}

// Decode unmarshals Data into v.
func (s State) Decode(v any) error {
	if len(s.Data) == 0 {
		return ErrNoData
	}
	return json.Unmarshal(s.Data, v)
}

// MarshalJSON renders the state with the error message inline.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	out := struct {
		plain
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{plain: plain(s), Status: s.Status().String()}
	if s.Error != nil {
		out.Error = s.Error.Error()
	}
	return json.Marshal(out)
}
