package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/moodhome/internal/models"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ConfigSource looks up stored provider configuration.
type ConfigSource interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Endpoints are the OAuth2 and key endpoints of an issuer.
type Endpoints struct {
	Authorization string `json:"authorization_endpoint"`
	Token         string `json:"token_endpoint"`
	JWKS          string `json:"jwks_uri"`
}

type discoveryEntry struct {
	endpoints Endpoints
	expires   time.Time
}

// Provider resolves OIDC configuration and issuer endpoints
type Provider struct {
	source     ConfigSource
	httpClient *http.Client
	ttl        time.Duration

	mu        sync.Mutex
	discovery map[string]discoveryEntry
}

// NewProvider creates a new OIDC provider manager
func NewProvider(source ConfigSource) *Provider {
	return &Provider{
		source:     source,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		ttl:        time.Hour,
		discovery:  make(map[string]discoveryEntry),
	}
}

// GetConfig retrieves OIDC configuration for a provider
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.source.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// Endpoints returns the issuer's endpoints. The discovery document is
// preferred and cached; issuer-relative paths are used when it is
// unavailable. A configured JWKS URL or Cognito domain wins over both.
func (p *Provider) Endpoints(ctx context.Context, config *models.OIDCConfig) Endpoints {
	ep := p.discover(ctx, config.Issuer)

	base := strings.TrimSuffix(config.Issuer, "/")
	if ep.Authorization == "" {
		ep.Authorization = base + "/oauth2/authorize"
	}
	if ep.Token == "" {
		ep.Token = base + "/oauth2/token"
	}
	if ep.JWKS == "" {
		ep.JWKS = base + "/.well-known/jwks.json"
	}

	if domain := config.HostedDomain(); domain != "" {
		ep.Authorization = domain + "/oauth2/authorize"
		ep.Token = domain + "/oauth2/token"
	}
	if config.JWKSUrl != nil && *config.JWKSUrl != "" {
		ep.JWKS = *config.JWKSUrl
	}
	return ep
}

func (p *Provider) discover(ctx context.Context, issuer string) Endpoints {
	p.mu.Lock()
	entry, ok := p.discovery[issuer]
	p.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.endpoints
	}

	url := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Endpoints{}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Endpoints{}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Endpoints{}
	}

	var ep Endpoints
	if err := json.NewDecoder(resp.Body).Decode(&ep); err != nil {
		return Endpoints{}
	}

	p.mu.Lock()
	p.discovery[issuer] = discoveryEntry{endpoints: ep, expires: time.Now().Add(p.ttl)}
	p.mu.Unlock()
	return ep
}

// GetLoginConfig returns the configuration needed for frontend OIDC login
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}
	ep := p.Endpoints(ctx, config)
	// The frontend keeps state and checks it on the redirect back.
	state := uuid.NewString()
	return &LoginConfig{
		AuthorizationEndpoint: ep.Authorization,
		TokenEndpoint:         ep.Token,
		AuthorizationURL:      NewClient(config, ep).AuthCodeURL(state),
		State:                 state,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 strings.Join(DefaultScopes, " "),
	}, nil
}

// ExchangeCode trades an authorization code from the provider's redirect for tokens.
func (p *Provider) ExchangeCode(ctx context.Context, providerName, code string) (*oauth2.Token, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}
	token, err := NewClient(config, p.Endpoints(ctx, config)).ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	AuthorizationURL      string `json:"authorization_url"`
	State                 string `json:"state"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}
