package sesam_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visdak/sesam"
)

type stubIdentity struct {
	id, name, email, role string
}

func (s stubIdentity) ID() string    { return s.id }
func (s stubIdentity) Name() string  { return s.name }
func (s stubIdentity) Email() string { return s.email }
func (s stubIdentity) Role() string  { return s.role }

func testTokenConfig(sliding bool) *sesam.Config {
	cfg := &sesam.Config{
		SigningKey:        "access-secret",
		RefreshSigningKey: "refresh-secret",
		Issuer:            "sesam-test",
		Audience:          []string{"sesam-app"},
		TokenExpiration:   15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		SlidingRefresh:    sliding,
		BaseURL:           "https://app.test",
	}
	return cfg.WithDefaults()
}

// fakeClock lets tests move the service's notion of now.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTokenService_IssueInitial(t *testing.T) {
	clock := newFakeClock()
	svc := sesam.NewTokenService(testTokenConfig(true), sesam.WithClock(clock.Now))
	identity := stubIdentity{id: "user-123", name: "Pepe Rone", email: "pepe@example.com", role: "user"}

	t.Run("mints a verifiable pair", func(t *testing.T) {
		pair, err := svc.IssueInitial(identity)
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
		assert.Equal(t, clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)
		assert.Equal(t, clock.Now().Add(7*24*time.Hour), pair.RefreshExpiresAt)

		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, "user", claims.Role())
		assert.Equal(t, "sesam-test", claims.Issuer)
		assert.Equal(t, clock.Now().Add(15*time.Minute).Unix(), claims.Expires().Unix())

		refresh, err := svc.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", refresh.UserID())
		assert.Equal(t, clock.Now().Unix(), refresh.FamilyIssuedAt().Unix())
	})

	t.Run("rejects a nil identity", func(t *testing.T) {
		pair, err := svc.IssueInitial(nil)
		assert.Error(t, err)
		assert.Nil(t, pair)
	})

	t.Run("tokens carry unique ids", func(t *testing.T) {
		first, err := svc.IssueInitial(identity)
		require.NoError(t, err)
		second, err := svc.IssueInitial(identity)
		require.NoError(t, err)

		a, err := svc.VerifyAccess(first.AccessToken)
		require.NoError(t, err)
		b, err := svc.VerifyAccess(second.AccessToken)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestTokenService_Verify(t *testing.T) {
	clock := newFakeClock()
	svc := sesam.NewTokenService(testTokenConfig(true), sesam.WithClock(clock.Now))
	identity := stubIdentity{id: "user-123", role: "user"}

	pair, err := svc.IssueInitial(identity)
	require.NoError(t, err)

	t.Run("access key does not validate refresh tokens", func(t *testing.T) {
		claims, err := svc.VerifyAccess(pair.RefreshToken)
		assert.Nil(t, claims)
		assert.True(t, sesam.IsMalformedError(err))
	})

	t.Run("refresh key does not validate access tokens", func(t *testing.T) {
		claims, err := svc.VerifyRefresh(pair.AccessToken)
		assert.Nil(t, claims)
		assert.True(t, sesam.IsMalformedError(err))
	})

	t.Run("garbage token is malformed", func(t *testing.T) {
		claims, err := svc.VerifyAccess("not.a.jwt")
		assert.Nil(t, claims)
		assert.True(t, sesam.IsMalformedError(err))
	})

	t.Run("tampered token is malformed", func(t *testing.T) {
		tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
		claims, err := svc.VerifyAccess(tampered)
		assert.Nil(t, claims)
		assert.True(t, sesam.IsMalformedError(err))
	})

	t.Run("expired access token", func(t *testing.T) {
		clock.Advance(16 * time.Minute)
		defer clock.Advance(-16 * time.Minute)

		claims, err := svc.VerifyAccess(pair.AccessToken)
		assert.Nil(t, claims)
		assert.True(t, sesam.IsTokenExpiredError(err))
	})

	t.Run("wrong issuer fails validation", func(t *testing.T) {
		other := testTokenConfig(true)
		other.Issuer = "someone-else"
		otherSvc := sesam.NewTokenService(other, sesam.WithClock(clock.Now))

		claims, err := otherSvc.VerifyAccess(pair.AccessToken)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}

func TestTokenService_SlidingRotation(t *testing.T) {
	clock := newFakeClock()
	svc := sesam.NewTokenService(testTokenConfig(true), sesam.WithClock(clock.Now))
	identity := stubIdentity{id: "user-123", role: "user"}

	pair, err := svc.IssueInitial(identity)
	require.NoError(t, err)

	clock.Advance(3 * 24 * time.Hour)

	claims, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	rotated, err := svc.Rotate(claims)
	require.NoError(t, err)

	// the window renews: a full refresh TTL from the rotation instant
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), rotated.RefreshExpiresAt)

	next, err := svc.VerifyRefresh(rotated.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Unix(), next.FamilyIssuedAt().Unix())
}

func TestTokenService_BoundedRotation(t *testing.T) {
	clock := newFakeClock()
	svc := sesam.NewTokenService(testTokenConfig(false), sesam.WithClock(clock.Now))
	identity := stubIdentity{id: "user-123", role: "user"}

	start := clock.Now()
	pair, err := svc.IssueInitial(identity)
	require.NoError(t, err)

	t.Run("window shrinks and the anchor survives", func(t *testing.T) {
		clock.Advance(3 * 24 * time.Hour)

		claims, err := svc.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)

		rotated, err := svc.Rotate(claims)
		require.NoError(t, err)

		// 4 days remain of the original 7, regardless of rotation count
		assert.Equal(t, start.Add(7*24*time.Hour), rotated.RefreshExpiresAt)

		next, err := svc.VerifyRefresh(rotated.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, start.Unix(), next.FamilyIssuedAt().Unix())

		// a second rotation still lands on the same ceiling
		clock.Advance(24 * time.Hour)
		again, err := svc.Rotate(next)
		require.NoError(t, err)
		assert.Equal(t, start.Add(7*24*time.Hour), again.RefreshExpiresAt)
	})

	t.Run("rotation past the lifetime is rejected", func(t *testing.T) {
		claims, err := svc.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)

		clock.Advance(10 * 24 * time.Hour)
		defer clock.Advance(-10 * 24 * time.Hour)

		rotated, err := svc.Rotate(claims)
		assert.Nil(t, rotated)
		require.Error(t, err)
		assert.ErrorIs(t, err, sesam.ErrRefreshLifetimeExceeded)
	})

	t.Run("nil claims are rejected", func(t *testing.T) {
		rotated, err := svc.Rotate(nil)
		assert.Nil(t, rotated)
		assert.Error(t, err)
	})
}
