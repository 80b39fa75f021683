package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SettingsKey is the row key of the single CORS and rate limit record.
const SettingsKey = "default"

// CorsConfig is the operator-managed CORS policy. AllowedOrigins is stored
// as a comma-separated list.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Origins returns the configured origins in order, without blanks or repeats.
func (c *CorsConfig) Origins() []string {
	return SplitOrigins(c.AllowedOrigins)
}

// SplitOrigins splits a comma-separated origin list.
func SplitOrigins(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out
}

// RatelimitConfig is the per-client request rate in limiter format,
// for example "10-S" or "600-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OIDCConfig is a registered identity provider.
type OIDCConfig struct {
	ID       uuid.UUID `json:"id"`
	Provider string    `json:"provider"`
	Issuer   string    `json:"issuer"`
	// Domain is the hosted login domain for issuers that separate it from
	// the issuer URL (Cognito user pools).
	Domain       *string   `json:"domain,omitempty"`
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Secret returns the client secret, or "" for public clients.
func (c *OIDCConfig) Secret() string {
	if c.ClientSecret == nil {
		return ""
	}
	return *c.ClientSecret
}

// HostedDomain returns the https base of the hosted login domain, or "" when
// the issuer serves its own OAuth2 endpoints.
func (c *OIDCConfig) HostedDomain() string {
	if c.Domain == nil || *c.Domain == "" || !strings.Contains(c.Issuer, "cognito-idp.") {
		return ""
	}
	domain := strings.TrimSuffix(*c.Domain, "/")
	if !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain
}
