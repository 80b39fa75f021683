package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName is the user's name, falling back to the email address.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// IdentityClaims are the verified claims of a bearer token.
type IdentityClaims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Issuer    string    `json:"iss"`
	Audience  []string  `json:"aud"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
}

// NewUser builds the account created on a subject's first request.
func (c *IdentityClaims) NewUser() *User {
	sub := c.Subject
	u := &User{
		ID:            uuid.New(),
		Email:         c.Email,
		ProviderID:    &sub,
		EmailVerified: true,
	}
	if c.Name != "" {
		name := c.Name
		u.Name = &name
	}
	return u
}

// Sync copies a changed email or name onto u and reports whether anything
// changed. Empty claims never clear stored values.
func (c *IdentityClaims) Sync(u *User) bool {
	changed := false
	if c.Email != "" && u.Email != c.Email {
		u.Email = c.Email
		changed = true
	}
	if c.Name != "" && (u.Name == nil || *u.Name != c.Name) {
		name := c.Name
		u.Name = &name
		changed = true
	}
	return changed
}
