package query

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/querykit/transport"
)

func TestNewMutation_NilFunc(t *testing.T) {
	if _, err := NewMutation(nil); !errors.Is(err, ErrNilMutateFunc) {
		t.Fatalf("NewMutation(nil) error = %v, want ErrNilMutateFunc", err)
	}
}

func TestMutation_Success(t *testing.T) {
	var rec recorder
	m, err := NewMutation(func(ctx context.Context, payload any) (*transport.Response, error) {
		return transport.NewJSONResponse(201, map[string]any{"echo": payload})
	}, WithDefaults(Options{OnStateChange: rec.record}))
	if err != nil {
		t.Fatal(err)
	}

	var got json.RawMessage
	st := m.Mutate(context.Background(), "hi", Callbacks{
		OnSuccess: func(data json.RawMessage) { got = data },
		OnError:   func(err error) { t.Errorf("unexpected OnError(%v)", err) },
	})

	if st.IsLoading || st.IsError || string(st.Data) != `{"echo":"hi"}` {
		t.Errorf("Mutate() state = %+v", st)
	}
	if string(got) != `{"echo":"hi"}` {
		t.Errorf("OnSuccess data = %s", got)
	}
	if m.State().Status() != StatusSuccess {
		t.Errorf("State().Status() = %v", m.State().Status())
	}

	states := rec.snapshot()
	if len(states) != 2 || !states[0].IsLoading || states[1].IsLoading {
		t.Errorf("state sequence = %+v, want loading then settled", states)
	}
}

func TestMutation_FailureThenRetry(t *testing.T) {
	fail := true
	m, _ := NewMutation(func(ctx context.Context, payload any) (*transport.Response, error) {
		if fail {
			return jsonResponse(409, `{"reason":"conflict"}`), nil
		}
		return jsonResponse(200, `"done"`), nil
	})

	var gotErr error
	st := m.Mutate(context.Background(), nil, Callbacks{OnError: func(err error) { gotErr = err }})
	if !st.IsError || st.IsLoading {
		t.Fatalf("state = %+v, want settled error", st)
	}
	fe, ok := AsFetchError(gotErr)
	if !ok || fe.Kind != KindRemote || string(fe.Payload) != `{"reason":"conflict"}` {
		t.Fatalf("OnError got %v", gotErr)
	}

	fail = false
	st = m.Mutate(context.Background(), nil, Callbacks{})
	if st.IsError || st.Error != nil || string(st.Data) != `"done"` {
		t.Errorf("retry state = %+v, want clean success", st)
	}
}

func TestMutation_NilCallbacks(t *testing.T) {
	m, _ := NewMutation(func(ctx context.Context, payload any) (*transport.Response, error) {
		return nil, errors.New("offline")
	})
	st := m.Mutate(context.Background(), nil, Callbacks{})
	if fe, ok := AsFetchError(st.Error); !ok || fe.Kind != KindNetwork {
		t.Errorf("Error = %v, want network", st.Error)
	}
}

func TestMutation_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/items" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := transport.NewHTTPClient(transport.HTTPConfig{BaseURL: srv.URL})
	m, err := NewMutation(transport.Send(client, http.MethodPost, "/items"))
	if err != nil {
		t.Fatal(err)
	}

	st := m.Mutate(context.Background(), map[string]string{"name": "widget"}, Callbacks{})
	var out struct{ Name string }
	if err := st.Decode(&out); err != nil || out.Name != "widget" {
		t.Errorf("Decode() = %v, Name = %q", err, out.Name)
	}
}
