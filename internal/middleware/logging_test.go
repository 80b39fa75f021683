package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/moodhome/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		status int
		level  zapcore.Level
	}{
		{name: "created", method: http.MethodPost, path: "/api/v1/checkins", status: http.StatusCreated, level: zapcore.InfoLevel},
		{name: "not found", method: http.MethodGet, path: "/api/v1/checkins/nope", status: http.StatusNotFound, level: zapcore.WarnLevel},
		{name: "store down", method: http.MethodGet, path: "/api/v1/suggestions", status: http.StatusServiceUnavailable, level: zapcore.ErrorLevel},
		{name: "probe", method: http.MethodGet, path: "/healthz", status: http.StatusOK, level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("{}"))
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.status, w.Code)

			entries := logs.FilterMessage("http_request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, int64(tt.status), entries[0].ContextMap()["status_code"])
		})
	}
}

func TestLogging_ImplicitOK(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/version", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status_code"])
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.RequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(request.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != "abc-123" {
		t.Errorf("Expected inbound request ID to propagate, got %q", seen)
	}
	if got := w.Header().Get(request.RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected response header abc-123, got %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if seen == "" || w.Header().Get(request.RequestIDHeader) != seen {
		t.Errorf("Expected generated request ID to be echoed, got %q and %q", seen, w.Header().Get(request.RequestIDHeader))
	}
}

func TestLoggingFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	h := RequestID(Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest("POST", "/api/v1/checkins/abc/regenerate", nil)
	req.Header.Set(request.RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one http_request entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status_code"] != int64(http.StatusAccepted) {
		t.Errorf("Expected status_code 202, got %v", fields["status_code"])
	}
	if fields["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1, got %v", fields["request_id"])
	}
}

func TestResponseWriterFlush(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	var f http.Flusher = rw
	f.Flush()
	if !w.Flushed {
		t.Error("Expected Flush to reach the underlying writer")
	}
}
