package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/moodhome/internal/services/oidc"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
	providerName string
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler for the named OIDC provider
func NewAuthHandler(oidcProvider *oidc.Provider, providerName string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{oidcProvider: oidcProvider, providerName: providerName, logger: logger}
}

// RegisterPublicRoutes registers routes that do not need a token
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/oidc/callback", h.PostOIDCCallback).Methods("POST")
}

// OIDCCallbackRequest carries the code from the provider's redirect.
type OIDCCallbackRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

// OIDCTokens is returned after a successful code exchange.
type OIDCTokens struct {
	AccessToken string    `json:"access_token"`
	IDToken     string    `json:"id_token,omitempty"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// RegisterRoutes registers authenticated auth routes
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context(), h.providerName)
	if err != nil {
		h.logger.Error("oidc_login_config_failed", zap.String("provider", h.providerName), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// PostOIDCCallback exchanges an authorization code for provider tokens. The
// ID token is the bearer token for the rest of the API.
func (h *AuthHandler) PostOIDCCallback(w http.ResponseWriter, r *http.Request) {
	var req OIDCCallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.oidcProvider.ExchangeCode(r.Context(), h.providerName, req.Code)
	if err != nil {
		h.logger.Warn("oidc_code_exchange_failed", zap.String("provider", h.providerName), zap.Error(err))
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authorization code exchange failed")
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	respondJSON(w, http.StatusOK, OIDCTokens{
		AccessToken: token.AccessToken,
		IDToken:     idToken,
		TokenType:   token.Type(),
		ExpiresAt:   token.Expiry,
	})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}
