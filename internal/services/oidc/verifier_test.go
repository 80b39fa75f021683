package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const testIssuer = "https://issuer.example.com"

func newSigningKey(t *testing.T) (jwk.Key, string) {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	priv, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("jwk from raw: %v", err)
	}
	_ = priv.Set(jwk.KeyIDKey, "test-kid")
	_ = priv.Set(jwk.AlgorithmKey, jwa.RS256)

	pub, err := jwk.PublicKeyOf(priv)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	_ = pub.Set(jwk.KeyIDKey, "test-kid")
	_ = pub.Set(jwk.AlgorithmKey, jwa.RS256)

	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("add key: %v", err)
	}
	body, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return priv, srv.URL
}

func signToken(t *testing.T, key jwk.Key, issuer string, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject("provider-user-1").
		Audience([]string{"client-id"}).
		IssuedAt(exp.Add(-time.Hour)).
		Expiration(exp).
		Claim("email", "user@example.com").
		Claim("name", "Test User").
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	key, jwksURL := newSigningKey(t)
	verifier := NewVerifier(NewJWKSManager(), testIssuer)

	claims, err := verifier.Verify(context.Background(), signToken(t, key, testIssuer, time.Now().Add(time.Hour)), jwksURL)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "provider-user-1" {
		t.Errorf("unexpected sub %q", claims.Subject)
	}
	if claims.Email != "user@example.com" || claims.Name != "Test User" {
		t.Errorf("unexpected profile claims: %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "client-id" || claims.Issuer != testIssuer {
		t.Errorf("unexpected aud/iss: %+v", claims)
	}
	if claims.ExpiresAt.Before(time.Now()) {
		t.Errorf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	t.Parallel()

	key, jwksURL := newSigningKey(t)
	verifier := NewVerifier(NewJWKSManager(), testIssuer)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong issuer", signToken(t, key, "https://evil.example.com", time.Now().Add(time.Hour))},
		{"expired", signToken(t, key, testIssuer, time.Now().Add(-time.Hour))},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := verifier.Verify(context.Background(), tt.token, jwksURL); err == nil {
				t.Error("expected verification error")
			}
		})
	}
}

func TestJWKSManager_Caches(t *testing.T) {
	t.Parallel()

	_, jwksURL := newSigningKey(t)
	m := NewJWKSManager()

	first, err := m.GetJWKS(context.Background(), jwksURL)
	if err != nil {
		t.Fatalf("GetJWKS: %v", err)
	}
	second, err := m.GetJWKS(context.Background(), jwksURL)
	if err != nil {
		t.Fatalf("GetJWKS: %v", err)
	}
	if first != second {
		t.Error("expected cached key set")
	}
}
