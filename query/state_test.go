package query

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestState_Status(t *testing.T) {
	settled := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		state State
		want  Status
	}{
		{"zero", State{}, StatusIdle},
		{"loading", State{IsLoading: true}, StatusPending},
		{"refreshing keeps pending", State{IsLoading: true, Data: json.RawMessage(`1`), UpdatedAt: settled}, StatusPending},
		{"success", State{Data: json.RawMessage(`1`), UpdatedAt: settled}, StatusSuccess},
		{"empty success", State{UpdatedAt: settled}, StatusSuccess},
		{"error", State{IsError: true, Error: errors.New("x"), UpdatedAt: settled}, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_Decode(t *testing.T) {
	var v struct{ ID int }
	if err := (State{}).Decode(&v); !errors.Is(err, ErrNoData) {
		t.Errorf("Decode() on empty state = %v, want ErrNoData", err)
	}
	if err := (State{Data: json.RawMessage(`{"ID":7}`)}).Decode(&v); err != nil || v.ID != 7 {
		t.Errorf("Decode() = %v, ID = %d", err, v.ID)
	}
}

func TestState_MarshalJSON(t *testing.T) {
	st := State{
		Data:    json.RawMessage(`{"id":1}`),
		IsError: true,
		Error:   errors.New("boom"),
	}
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out["error"] != "boom" {
		t.Errorf("error = %v", out["error"])
	}
	if out["status"] != "error" {
		t.Errorf("status = %v", out["status"])
	}
	if _, ok := out["updatedAt"]; ok {
		t.Error("zero UpdatedAt should be omitted")
	}
	if d, ok := out["data"].(map[string]any); !ok || d["id"] != float64(1) {
		t.Errorf("data = %v", out["data"])
	}
}
