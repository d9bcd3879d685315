package sesam_test

import (
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visdak/sesam"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := (&sesam.Config{
		SigningKey:        "access-secret",
		RefreshSigningKey: "refresh-secret",
	}).WithDefaults()

	assert.Equal(t, sesam.DefaultAccessTokenTTL, cfg.TokenExpiration)
	assert.Equal(t, sesam.DefaultRefreshTokenTTL, cfg.RefreshTTL)
	assert.Equal(t, sesam.DefaultVerificationTTL, cfg.VerificationTTL)
	assert.Equal(t, sesam.DefaultPasswordResetTTL, cfg.PasswordResetTTL)
	assert.Equal(t, sesam.DefaultEmailResendCooldown, cfg.EmailResendCooldown)
	assert.Equal(t, sesam.DefaultEmailSendTimeout, cfg.EmailSendTimeout)
	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, "/", cfg.CookiePath)
}

func TestConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := (&sesam.Config{
		TokenExpiration: 5 * time.Minute,
		RefreshTTL:      48 * time.Hour,
		ContextKey:      "session",
	}).WithDefaults()

	assert.Equal(t, 5*time.Minute, cfg.TokenExpiration)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "session", cfg.ContextKey)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("complete config passes", func(t *testing.T) {
		assert.NoError(t, testTokenConfig(true).Validate())
	})

	t.Run("reports every missing field at once", func(t *testing.T) {
		err := (&sesam.Config{}).WithDefaults().Validate()
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, sesam.TextCodeConfigInvalid, richErr.TextCode)

		missing, ok := richErr.Metadata["missing"].([]string)
		require.True(t, ok)
		assert.Contains(t, missing, "SigningKey")
		assert.Contains(t, missing, "RefreshSigningKey")
		assert.Contains(t, missing, "Issuer")
		assert.Contains(t, missing, "Audience")
		assert.Contains(t, missing, "BaseURL")
	})

	t.Run("rejects a shared signing key", func(t *testing.T) {
		cfg := testTokenConfig(true)
		cfg.RefreshSigningKey = cfg.SigningKey

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SigningKey and RefreshSigningKey must differ")
	})
}

func TestConfig_RotationPolicy(t *testing.T) {
	sliding := testTokenConfig(true)
	assert.True(t, sliding.RotationPolicy().Sliding())

	bounded := testTokenConfig(false)
	assert.False(t, bounded.RotationPolicy().Sliding())
}
