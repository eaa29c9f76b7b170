package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_IncludesQueryFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithQuery(QueryMeta{Key: "query:GET:/users", Method: "GET"}).
		Info(context.Background(), "settled")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	entry := lines[0]
	if entry["query.key"] != "query:GET:/users" {
		t.Errorf("query.key = %v", entry["query.key"])
	}
	if entry["query.kind"] != KindQuery {
		t.Errorf("query.kind = %v", entry["query.kind"])
	}
	if entry["query.method"] != "GET" {
		t.Errorf("query.method = %v", entry["query.method"])
	}
	if entry["msg"] != "settled" || entry["level"] != "info" {
		t.Errorf("msg/level = %v/%v", entry["msg"], entry["level"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1In0.c2ln"

	logger.Info(context.Background(), "request",
		Field{Key: "Authorization", Value: "Bearer abc"},
		Field{Key: "refresh-token", Value: "abc"},
		Field{Key: "upstream_token", Value: "abc"},
		Field{Key: "Set-Cookie", Value: "session=1"},
		Field{Key: "header", Value: "bearer abc"},
		Field{Key: "raw", Value: jwtLike},
		Field{Key: "path", Value: "/users"},
		Field{Key: "status", Value: 200},
	)

	entry := decodeLines(t, &buf)[0]
	tests := map[string]any{
		"Authorization":  "[REDACTED]",
		"refresh-token":  "[REDACTED]",
		"upstream_token": "[REDACTED]",
		"Set-Cookie":     "[REDACTED]",
		"header":         "bearer [REDACTED]",
		"raw":            "[REDACTED]",
		"path":           "/users",
		"status":         float64(200),
	}
	for k, want := range tests {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}

func TestLogger_RedactsHeaders(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("Cookie", "session=1")
	h.Set("Accept", "application/json")
	logger.Info(context.Background(), "sent", Field{Key: "headers", Value: h})

	got, ok := decodeLines(t, &buf)[0]["headers"].(map[string]any)
	if !ok {
		t.Fatalf("headers not encoded as an object: %s", buf.String())
	}
	for name, want := range map[string]string{
		"Authorization": "[REDACTED]",
		"Cookie":        "[REDACTED]",
		"Accept":        "application/json",
	} {
		values, _ := got[name].([]any)
		if len(values) != 1 || values[0] != want {
			t.Errorf("%s = %v, want [%s]", name, got[name], want)
		}
	}
	if h.Get("Authorization") != "Bearer abc" {
		t.Error("caller's header was modified")
	}
}

func TestLogger_DeterministicWithFixedClock(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	logger := newJSONLogger(LevelInfo, &buf, func() time.Time { return at })

	logger.WithQuery(QueryMeta{Key: "k"}).Warn(context.Background(), "query failed", Field{Key: "status", Value: 503})

	want := `{"level":"warn","msg":"query failed","query.key":"k","query.kind":"query","status":503,"time":"2026-01-02T03:04:05Z"}` + "\n"
	if buf.String() != want {
		t.Errorf("got  %s\nwant %s", buf.String(), want)
	}
}

func TestLogger_UnencodableField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	logger.Info(context.Background(), "odd", Field{Key: "ch", Value: make(chan int)})

	entry := decodeLines(t, &buf)[0]
	if entry["msg"] != "odd" || entry["error"] == nil {
		t.Errorf("expected a fallback entry with an error, got %v", entry)
	}
}

func TestLogger_WithQueryDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithQuery(QueryMeta{Key: "child"})

	parent.Info(context.Background(), "parent")
	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["query.key"]; ok {
		t.Error("parent logger should not carry child attributes")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "warning", want: LevelWarn},
		{in: " error ", want: LevelError},
		{in: "bogus", want: LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidLogLevel) {
			t.Errorf("ParseLogLevel(%q) error = %v, want ErrInvalidLogLevel", tt.in, err)
		}
	}
	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if back, _ := ParseLogLevel(l.String()); back != l {
			t.Errorf("round trip of %v gave %v", l, back)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	ctx := context.Background()
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, "x")
	l.Debug(ctx, "x")
	if l.WithQuery(QueryMeta{}) != l {
		t.Error("noop WithQuery should return itself")
	}
}
