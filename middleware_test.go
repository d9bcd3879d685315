package sesam_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/visdak/sesam"
)

func protectFixture(t *testing.T) (*sesam.TokenServiceImpl, router.MiddlewareFunc, *sesam.TokenPair) {
	t.Helper()

	clock := newFakeClock()
	tokens := sesam.NewTokenService(testTokenConfig(true), sesam.WithClock(clock.Now))
	transport := sesam.NewCookieTransport(testTokenConfig(true))

	pair, err := tokens.IssueInitial(stubIdentity{id: "user-123", role: "user"})
	require.NoError(t, err)

	protect := sesam.Protect(tokens, transport, sesam.ProtectConfig{Logger: testLogger{}})
	return tokens, protect, pair
}

func TestProtect(t *testing.T) {
	t.Run("valid token reaches the handler with claims", func(t *testing.T) {
		_, protect, pair := protectFixture(t)

		ctx := &MockContext{}
		ctx.On("Cookies", sesam.CookieAccessToken).Return(pair.AccessToken).Once()
		ctx.On("Locals", "user", mock.Anything).Return(nil).Once()
		ctx.On("Context").Return(context.Background()).Once()
		ctx.On("SetContext", mock.Anything).Once()

		handler := protect(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.True(t, ctx.NextCalled)

		ctx.AssertExpectations(t)
	})

	t.Run("missing credential is rejected", func(t *testing.T) {
		_, protect, _ := protectFixture(t)

		ctx := &MockContext{}
		ctx.On("Cookies", sesam.CookieAccessToken).Return("").Once()
		ctx.On("Header", "Authorization").Return("").Once()
		ctx.On("JSON", http.StatusUnauthorized, mock.Anything).Return(nil).Once()

		handler := protect(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.False(t, ctx.NextCalled)

		ctx.AssertExpectations(t)
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		_, protect, _ := protectFixture(t)

		ctx := &MockContext{}
		ctx.On("Cookies", sesam.CookieAccessToken).Return("not-a-token").Once()
		ctx.On("JSON", http.StatusUnauthorized, mock.Anything).Return(nil).Once()

		handler := protect(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.False(t, ctx.NextCalled)
	})

	t.Run("optional mode lets anonymous requests through", func(t *testing.T) {
		clock := newFakeClock()
		tokens := sesam.NewTokenService(testTokenConfig(true), sesam.WithClock(clock.Now))
		transport := sesam.NewCookieTransport(testTokenConfig(true))
		protect := sesam.Protect(tokens, transport, sesam.ProtectConfig{Optional: true, Logger: testLogger{}})

		ctx := &MockContext{}
		ctx.On("Cookies", sesam.CookieAccessToken).Return("").Once()
		ctx.On("Header", "Authorization").Return("").Once()

		handler := protect(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.True(t, ctx.NextCalled)

		ctx.AssertNotCalled(t, "JSON", mock.Anything, mock.Anything)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin claims pass", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(&sesam.AccessClaims{UID: "admin-1", UserRole: "admin"}).Once()

		handler := sesam.RequireAdmin()(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.True(t, ctx.NextCalled)
	})

	t.Run("non-admin claims get 403", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(&sesam.AccessClaims{UID: "user-1", UserRole: "user"}).Once()
		ctx.On("JSON", http.StatusForbidden, mock.Anything).Return(nil).Once()

		handler := sesam.RequireAdmin()(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.False(t, ctx.NextCalled)

		ctx.AssertExpectations(t)
	})

	t.Run("missing claims get 401", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(nil).Once()
		ctx.On("JSON", http.StatusUnauthorized, mock.Anything).Return(nil).Once()

		handler := sesam.RequireAdmin()(func(c router.Context) error { return c.Next() })
		require.NoError(t, handler(ctx))
		assert.False(t, ctx.NextCalled)
	})
}
