package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/request"
	"github.com/benvon/moodhome/internal/services/oidc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	created int
	updated int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*models.User)}
}

func (m *memoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[*u.ProviderID] = u
	m.created++
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return nil, apperrors.NewNotFound("user", id.String())
}

func (m *memoryUsers) GetByProviderID(_ context.Context, providerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[providerID]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFound("user", providerID)
}

func (m *memoryUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated++
	return nil
}

type staticSource struct{ cfg *models.OIDCConfig }

func (s staticSource) GetByProvider(_ context.Context, provider string) (*models.OIDCConfig, error) {
	if provider != "default" {
		return nil, errors.New("not found")
	}
	return s.cfg, nil
}

type fakeVerifier struct {
	claims *models.IdentityClaims
	err    error
	jwks   string
}

func (f *fakeVerifier) Verify(_ context.Context, _ string, jwksURL string) (*models.IdentityClaims, error) {
	f.jwks = jwksURL
	return f.claims, f.err
}

func newTestAuthenticator(t *testing.T, users *memoryUsers, v *fakeVerifier) *Authenticator {
	t.Helper()
	jwks := "https://idp.example/keys"
	provider := oidc.NewProvider(staticSource{cfg: &models.OIDCConfig{
		Provider: "default",
		Issuer:   "http://127.0.0.1:1",
		ClientID: "cid",
		JWKSUrl:  &jwks,
	}})
	a := NewAuthenticator(users, provider, oidc.NewJWKSManager(), "default", zap.NewNop())
	a.newVerifier = func(string) TokenVerifier { return v }
	return a
}

func TestAuthenticator_MissingToken(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, newMemoryUsers(), &fakeVerifier{})
	w := httptest.NewRecorder()
	a.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticator_InvalidToken(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, newMemoryUsers(), &fakeVerifier{err: errors.New("expired")})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	a.Middleware(okHandler()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticator_CreatesThenReusesUser(t *testing.T) {
	t.Parallel()

	users := newMemoryUsers()
	v := &fakeVerifier{claims: &models.IdentityClaims{Subject: "sub-1", Email: "a@example.com", Name: "Ada"}}
	a := newTestAuthenticator(t, users, v)

	var got []*models.User
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, request.UserFromContext(r))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/checkins", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Len(t, got, 2)
	require.NotNil(t, got[0])
	assert.Equal(t, got[0].ID, got[1].ID)
	assert.Equal(t, "a@example.com", got[0].Email)
	assert.Equal(t, 1, users.created)
	assert.Equal(t, 0, users.updated)
	assert.Equal(t, "https://idp.example/keys", v.jwks)
}

func TestAuthenticator_UpdatesChangedProfile(t *testing.T) {
	t.Parallel()

	users := newMemoryUsers()
	v := &fakeVerifier{claims: &models.IdentityClaims{Subject: "sub-1", Email: "a@example.com"}}
	a := newTestAuthenticator(t, users, v)
	h := a.Middleware(okHandler())

	send := func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	send()
	v.claims = &models.IdentityClaims{Subject: "sub-1", Email: "new@example.com"}
	send()

	assert.Equal(t, 1, users.updated)
	u, err := users.GetByProviderID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		accept string
		query  string
		want   string
		ok     bool
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc", ok: true},
		{name: "lowercase scheme", header: "bearer abc", want: "abc", ok: true},
		{name: "basic scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "stream query token", accept: "text/event-stream", query: "abc", want: "abc", ok: true},
		{name: "query token outside streams", query: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := "/api/v1/stream/checkins"
			if tt.query != "" {
				target += "?access_token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			got, ok := bearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
