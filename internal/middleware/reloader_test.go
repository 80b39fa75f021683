package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/moodhome/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRatelimitSource struct {
	cfg   *models.RatelimitConfig
	err   error
	saved *models.RatelimitConfig
}

func (s *stubRatelimitSource) Get(context.Context) (*models.RatelimitConfig, error) {
	return s.cfg, s.err
}

func (s *stubRatelimitSource) Set(_ context.Context, c *models.RatelimitConfig) error {
	s.saved = c
	return nil
}

func TestRateLimitReloader_LimitsAndExempts(t *testing.T) {
	t.Parallel()

	src := &stubRatelimitSource{cfg: &models.RatelimitConfig{Rate: "2-M"}}
	rl, err := NewRateLimitReloader(nil, src, "", zap.NewNop(), 0)
	require.NoError(t, err)
	h := rl.Middleware()(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitReloader_SeedsDefault(t *testing.T) {
	t.Parallel()

	src := &stubRatelimitSource{}
	rl, err := NewRateLimitReloader(nil, src, "100-M", zap.NewNop(), 0)
	require.NoError(t, err)
	_ = rl.Middleware()(okHandler())

	require.NotNil(t, src.saved)
	assert.Equal(t, "100-M", src.saved.Rate)
}

type stubCORSSource struct {
	cfg *models.CorsConfig
	err error
}

func (s stubCORSSource) Get(context.Context) (*models.CorsConfig, error) { return s.cfg, s.err }

func TestCORSReloader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source stubCORSSource
		origin string
		allow  bool
	}{
		{name: "stored origin", source: stubCORSSource{cfg: &models.CorsConfig{AllowedOrigins: "https://app.example", MaxAge: 60}}, origin: "https://app.example", allow: true},
		{name: "unknown origin", source: stubCORSSource{cfg: &models.CorsConfig{AllowedOrigins: "https://app.example"}}, origin: "https://evil.example"},
		{name: "fallback on error", source: stubCORSSource{err: errors.New("db down")}, origin: "https://front.example", allow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewCORSReloader(tt.source, "https://front.example", zap.NewNop(), 0).Middleware()(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin")
			if tt.allow {
				assert.Equal(t, tt.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}
