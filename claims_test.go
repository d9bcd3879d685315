package sesam_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/visdak/sesam"
)

func TestAccessClaims(t *testing.T) {
	expiresAt := time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)

	claims := &sesam.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-id",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      "user-123",
		UserRole: "admin",
	}

	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "admin", claims.Role())
	assert.Equal(t, expiresAt, claims.Expires())

	t.Run("falls back to the subject", func(t *testing.T) {
		legacy := &sesam.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", legacy.UserID())
	})

	t.Run("zero expiry", func(t *testing.T) {
		blank := &sesam.AccessClaims{}
		assert.True(t, blank.Expires().IsZero())
	})
}

func TestRefreshClaims_FamilyIssuedAt(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issued := anchor.Add(48 * time.Hour)

	t.Run("prefers the family anchor", func(t *testing.T) {
		claims := &sesam.RefreshClaims{
			RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(issued)},
			OriginalIssuedAt: jwt.NewNumericDate(anchor),
		}
		assert.Equal(t, anchor, claims.FamilyIssuedAt())
	})

	t.Run("tokens without an anchor fall back to their issue time", func(t *testing.T) {
		claims := &sesam.RefreshClaims{
			RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(issued)},
		}
		assert.Equal(t, issued, claims.FamilyIssuedAt())
	})

	t.Run("empty claims yield the zero time", func(t *testing.T) {
		assert.True(t, (&sesam.RefreshClaims{}).FamilyIssuedAt().IsZero())
	})
}
