package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and must not panic.
// - Credentials: implementations must not write bearer tokens, cookies or
//   other credentials verbatim.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// WithQuery returns a logger that adds query attributes to every entry.
	WithQuery(meta QueryMeta) Logger
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}

// LogLevel orders log severities.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLogLevel parses a level name case-insensitively. The empty string
// is info and "warning" is accepted for warn.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "info"
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line. Map keys are sorted by
// encoding/json, so output for a fixed clock is deterministic.
type jsonLogger struct {
	level LogLevel
	w     io.Writer
	mu    *sync.Mutex // shared with derived loggers
	now   func() time.Time
	attrs map[string]any
}

// NewLogger returns a JSON logger writing to os.Stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger writing to w. An unknown level
// logs at info; Config.Validate rejects it earlier.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	lvl, _ := ParseLogLevel(level)
	return newJSONLogger(lvl, w, time.Now)
}

func newJSONLogger(level LogLevel, w io.Writer, now func() time.Time) *jsonLogger {
	return &jsonLogger{level: level, w: w, mu: &sync.Mutex{}, now: now}
}

// WithQuery returns a child logger carrying the query kind, key and method.
func (l *jsonLogger) WithQuery(meta QueryMeta) Logger {
	child := *l
	child.attrs = make(map[string]any, len(l.attrs)+3)
	for k, v := range l.attrs {
		child.attrs[k] = v
	}
	child.attrs["query.kind"] = meta.OperationKind()
	if meta.Key != "" {
		child.attrs["query.key"] = meta.Key
	}
	if meta.Method != "" {
		child.attrs["query.method"] = meta.Method
	}
	return &child
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelError, msg, fields)
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelDebug, msg, fields)
}

func (l *jsonLogger) write(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.attrs)+len(fields)+3)
	for k, v := range l.attrs {
		entry[k] = v
	}
	for _, f := range fields {
		entry[f.Key] = redact(f.Key, f.Value)
	}
	entry["time"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(map[string]any{
			"time":  entry["time"],
			"level": entry["level"],
			"msg":   msg,
			"error": "unencodable log fields: " + err.Error(),
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(data, '\n'))
}

const redacted = "[REDACTED]"

// sensitiveKeys are field keys and header names whose values are always
// masked, after lowercasing and mapping '-' to '_'.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy_authorization": true,
	"cookie":              true,
	"set_cookie":          true,
	"x_api_key":           true,
	"api_key":             true,
	"token":               true,
	"access_token":        true,
	"refresh_token":       true,
	"id_token":            true,
	"password":            true,
	"secret":              true,
	"client_secret":       true,
}

func sensitiveKey(key string) bool {
	k := strings.ReplaceAll(strings.ToLower(key), "-", "_")
	return sensitiveKeys[k] || strings.HasSuffix(k, "_token")
}

// redact masks credentials in a field value. Header maps are cloned with
// sensitive headers masked. Strings that carry an HTTP auth scheme keep the
// scheme; strings shaped like a JWT are masked whole.
func redact(key string, v any) any {
	if sensitiveKey(key) {
		return redacted
	}
	switch val := v.(type) {
	case http.Header:
		out := make(map[string][]string, len(val))
		for name, values := range val {
			if sensitiveKey(name) {
				out[name] = []string{redacted}
				continue
			}
			masked := make([]string, len(values))
			for i, s := range values {
				masked[i] = redactString(s)
			}
			out[name] = masked
		}
		return out
	case string:
		return redactString(val)
	}
	return v
}

func redactString(s string) string {
	for _, scheme := range []string{"Bearer ", "Basic "} {
		if len(s) > len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
			return s[:len(scheme)] + redacted
		}
	}
	if looksLikeJWT(s) {
		return redacted
	}
	return s
}

// looksLikeJWT matches compact JWS: three dot-separated segments with a
// base64url JSON header.
func looksLikeJWT(s string) bool {
	if !strings.HasPrefix(s, "eyJ") || strings.ContainsAny(s, " \t\n") {
		return false
	}
	return strings.Count(s, ".") == 2
}

// noopLogger discards everything.
type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithQuery(QueryMeta) Logger            { return l }
