package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/moodhome/internal/database"
	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/request"
	"github.com/benvon/moodhome/internal/services/oidc"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token for an issuer.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string, jwksURL string) (*models.IdentityClaims, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Authenticator resolves bearer tokens to local users, creating users on
// first sight of a provider subject.
type Authenticator struct {
	users        database.UserRepositoryInterface
	oidcProvider *oidc.Provider
	providerName string
	newVerifier  func(issuer string) TokenVerifier
	logger       *zap.Logger
}

// NewAuthenticator creates bearer-token authentication backed by the named
// OIDC provider configuration.
func NewAuthenticator(users database.UserRepositoryInterface, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		users:        users,
		oidcProvider: oidcProvider,
		providerName: providerName,
		newVerifier: func(issuer string) TokenVerifier {
			return oidc.NewVerifier(jwksManager, issuer)
		},
		logger: logger,
	}
}

// Middleware rejects requests without a valid token and attaches the user
// to the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed bearer token", a.logger)
			return
		}

		ctx := r.Context()
		oidcConfig, err := a.oidcProvider.GetConfig(ctx, a.providerName)
		if err != nil {
			a.logger.Error("oidc_config_unavailable", zap.String("provider", a.providerName), zap.Error(err))
			respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Authentication is not configured", a.logger)
			return
		}
		jwksURL := a.oidcProvider.Endpoints(ctx, oidcConfig).JWKS

		claims, err := a.newVerifier(oidcConfig.Issuer).Verify(ctx, tokenString, jwksURL)
		if err != nil {
			a.logger.Info("token_verification_failed",
				zap.String("issuer", oidcConfig.Issuer),
				zap.Error(err),
			)
			respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", a.logger)
			return
		}

		user, err := a.resolveUser(ctx, claims)
		if err != nil {
			a.logger.Error("user_resolution_failed", zap.Error(err))
			status := apperrors.StatusOf(err)
			respondErrorJSON(w, r, status, http.StatusText(status), "Failed to resolve user", a.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
	})
}

func (a *Authenticator) resolveUser(ctx context.Context, claims *models.IdentityClaims) (*models.User, error) {
	user, err := a.users.GetByProviderID(ctx, claims.Subject)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		user = claims.NewUser()
		if err := a.users.Create(ctx, user); err != nil {
			if !apperrors.Is(err, apperrors.ErrConflict) {
				return nil, err
			}
			// Lost a race with a concurrent first request.
			return a.users.GetByProviderID(ctx, claims.Subject)
		}
		a.logger.Info("user_created", zap.String("user_id", user.ID.String()))
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if claims.Sync(user) {
		if err := a.users.Update(ctx, user); err != nil {
			a.logger.Warn("user_profile_update_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return user, nil
}

// bearerToken reads the Authorization header. Event streams may pass the
// token as access_token since EventSource cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}
