package sesam

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload carried by short-lived access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the subject user's ID.
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Role returns the subject user's role.
func (c *AccessClaims) Role() string {
	return c.UserRole
}

// Expires returns the token's expiry instant, or the zero time when unset.
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RefreshClaims is the payload carried by refresh tokens. OriginalIssuedAt
// records when the refresh family was first minted and survives every
// rotation under the bounded policy; sliding rotation rewrites it to now.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID              string           `json:"uid,omitempty"`
	UserRole         string           `json:"role,omitempty"`
	OriginalIssuedAt *jwt.NumericDate `json:"oiat,omitempty"`
}

// UserID returns the subject user's ID.
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Role returns the subject user's role.
func (c *RefreshClaims) Role() string {
	return c.UserRole
}

// FamilyIssuedAt returns when this refresh family was first issued. Tokens
// minted before the oiat claim existed fall back to their own issue time.
func (c *RefreshClaims) FamilyIssuedAt() time.Time {
	if c.OriginalIssuedAt != nil {
		return c.OriginalIssuedAt.Time
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}
