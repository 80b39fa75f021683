package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/services/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type oidcConfigs map[string]*models.OIDCConfig

func (c oidcConfigs) GetByProvider(_ context.Context, provider string) (*models.OIDCConfig, error) {
	if cfg, ok := c[provider]; ok {
		return cfg, nil
	}
	return nil, errors.New("no such provider")
}

// newIdentityProvider serves only a token endpoint; discovery falls back to
// issuer-relative paths.
func newIdentityProvider(t *testing.T) *oidc.Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "valid-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","expires_in":300,"id_token":"header.payload.sig"}`))
	}))
	t.Cleanup(srv.Close)

	return oidc.NewProvider(oidcConfigs{"default": {
		Provider:    "default",
		Issuer:      srv.URL,
		ClientID:    "moodhome-web",
		RedirectURI: "http://localhost:3000/callback",
	}})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(newIdentityProvider(t), "default", zap.NewNop())

	w := serve(t, h.RegisterPublicRoutes, "/auth", nil, jsonRequest(http.MethodGet, "/auth/oidc/login", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lc oidc.LoginConfig
	decodeEnvelope(t, w, &lc)
	assert.Equal(t, "moodhome-web", lc.ClientID)
	assert.NotEmpty(t, lc.State)
	assert.Contains(t, lc.AuthorizationURL, "state="+lc.State)

	missing := NewAuthHandler(newIdentityProvider(t), "okta", zap.NewNop())
	w = serve(t, missing.RegisterPublicRoutes, "/auth", nil, jsonRequest(http.MethodGet, "/auth/oidc/login", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(newIdentityProvider(t), "default", zap.NewNop())

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "valid code", body: map[string]string{"code": "valid-code"}, status: http.StatusOK},
		{name: "rejected code", body: map[string]string{"code": "stale"}, status: http.StatusUnauthorized},
		{name: "missing code", body: map[string]string{}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, h.RegisterPublicRoutes, "/auth", nil, jsonRequest(http.MethodPost, "/auth/oidc/callback", tt.body))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var tokens OIDCTokens
			decodeEnvelope(t, w, &tokens)
			assert.Equal(t, "access", tokens.AccessToken)
			assert.Equal(t, "header.payload.sig", tokens.IDToken)
			assert.Equal(t, "Bearer", tokens.TokenType)
			assert.False(t, tokens.ExpiresAt.IsZero())
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(newIdentityProvider(t), "default", zap.NewNop())
	user := testUser()

	w := serve(t, h.RegisterRoutes, "/auth", user, jsonRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	decodeEnvelope(t, w, &got)
	assert.Equal(t, user.ID, got.ID)

	w = serve(t, h.RegisterRoutes, "/auth", nil, jsonRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
