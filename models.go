package sesam

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted account record. Verification and password-reset
// tickets live directly on the row so redemption can be a single conditional
// UPDATE.
type User struct {
	bun.BaseModel `bun:"table:sesam_users,alias:usr" json:"-"`

	ID           uuid.UUID `bun:"id,pk,notnull" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         UserRole  `bun:"role,notnull" json:"role"`
	Verified     bool      `bun:"is_verified,notnull" json:"is_verified"`

	VerificationToken          *string    `bun:"verification_token" json:"-"`
	VerificationTokenExpiresAt *time.Time `bun:"verification_token_expires_at" json:"-"`
	LastVerificationEmailSent  *time.Time `bun:"last_verification_email_sent_at" json:"-"`

	PasswordResetToken     *string    `bun:"password_reset_token" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at" json:"-"`

	CreatedAt *time.Time `bun:"created_at,notnull" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,notnull" json:"updated_at,omitempty"`
}

// NormalizeEmail lowercases and trims an email so lookups are
// case-insensitive regardless of how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPendingVerification reports whether the user still holds an unredeemed
// verification ticket.
func (u *User) HasPendingVerification() bool {
	return !u.Verified && u.VerificationToken != nil
}

// UserIdentity adapts a User into the Identity interface for token issuance.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Name returns the user's display name.
func (u UserIdentity) Name() string {
	if u.user == nil {
		return ""
	}
	return u.user.Name
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return string(u.user.Role)
}

var _ Identity = UserIdentity{}
