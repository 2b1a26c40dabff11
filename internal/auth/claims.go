package auth

import (
	"time"

	"github.com/inkcircle/inkcircle-server/internal/domain"
)

// AccessClaims represents the claims stored in a PASETO access token.
// v4.local tokens are encrypted, so clients cannot read them.
type AccessClaims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Identity returns the caller described by the claims.
func (c *AccessClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role}
}
