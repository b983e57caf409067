package logger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/oggyb/matchchat/internal/config"
)

// captureStdout redirects stdout to a buffer during f()
func captureStdout(t *testing.T, f func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	_ = r.Close()

	return buf.String()
}

func logConfig(level, format, component string) *config.Config {
	c := &config.Config{}
	c.Log.Level = level
	c.Log.Format = format
	c.Log.Component = component
	return c
}

func TestLogger_TextFormat(t *testing.T) {
	out := captureStdout(t, func() {
		InitFromConfig(logConfig("debug", "text", "test"))
		Info("hello matchchat", "key", "value")
	})

	assert.Contains(t, out, "hello matchchat")
	assert.Contains(t, out, "component=test")
	assert.Contains(t, out, "key=value")
}

func TestLogger_JSONFormat(t *testing.T) {
	out := captureStdout(t, func() {
		InitFromConfig(logConfig("info", "json", "json_test"))
		Info("json log", "foo", "bar")
	})

	assert.Contains(t, out, `"msg":"json log"`)
	assert.Contains(t, out, `"component":"json_test"`)
	assert.Contains(t, out, `"foo":"bar"`)
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "error", Format: FormatText, Output: &buf})

	l.Info("should not appear")
	l.Error("should appear")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: "debug", Format: FormatText, Output: &buf})
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText}) })

	With("req_id", "123").Info("processing request")

	assert.Contains(t, buf.String(), "req_id=123")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	scoped := New(Config{Level: "debug", Output: &buf}).With("scope", "req")

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, nil).Info("scoped")
	assert.Contains(t, buf.String(), "scope=req")

	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}

func TestMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "info", Format: FormatJSON, Output: &buf})

	h := middleware.RequestID(Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context(), nil).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/match/matches", nil))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `"req_id"`))
	assert.Contains(t, out, `"msg":"inside handler"`)
	assert.Contains(t, out, `"path":"/api/match/matches"`)
	assert.Contains(t, out, `"status":418`)
}
