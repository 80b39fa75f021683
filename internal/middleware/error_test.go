package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "passes through",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			},
			status: http.StatusAccepted,
		},
		{
			name: "string panic",
			handler: func(http.ResponseWriter, *http.Request) {
				panic("emotion table corrupted")
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "runtime panic",
			handler: func(http.ResponseWriter, *http.Request) {
				var counts map[string]int
				counts["Calm"]++
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.ErrorLevel)
			h := RequestID(ErrorHandler(zap.New(core))(tt.handler))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil))
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusInternalServerError {
				assert.Zero(t, logs.Len())
				return
			}

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, "An unexpected error occurred", body.Message)
			assert.Equal(t, apperrors.ErrInternal, body.Code)
			assert.Equal(t, "/api/v1/checkins", body.Path)
			assert.Equal(t, w.Header().Get("X-Request-ID"), body.RequestID)
			assert.NotContains(t, w.Body.String(), "corrupted")

			require.Equal(t, 1, logs.FilterMessage("panic_recovered").Len())
		})
	}
}

func TestErrorHandler_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	h := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRespondErrorJSON_Codes(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondErrorJSON(w, httptest.NewRequest(http.MethodPost, "/x", nil), http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded", nil)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "code")

	w = httptest.NewRecorder()
	respondErrorJSON(w, httptest.NewRequest(http.MethodPost, "/x", nil), http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body too large", nil)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrInvalidInput, body.Code)
}
