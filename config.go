package sesam

import (
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Default lifetimes applied by Config.WithDefaults.
const (
	DefaultAccessTokenTTL      = 15 * time.Minute
	DefaultRefreshTokenTTL     = 7 * 24 * time.Hour
	DefaultVerificationTTL     = 24 * time.Hour
	DefaultPasswordResetTTL    = time.Hour
	DefaultEmailResendCooldown = 15 * time.Minute
	DefaultEmailSendTimeout    = 10 * time.Second
)

// Config carries every tunable the lifecycle engine needs. Zero durations are
// replaced with defaults by WithDefaults; secrets have no default and make
// Validate fail.
type Config struct {
	// SigningKey signs access tokens, RefreshSigningKey signs refresh tokens.
	// They must differ so one leaked key never compromises both token kinds.
	SigningKey        string `env:"AUTH_SIGNING_KEY"`
	RefreshSigningKey string `env:"AUTH_REFRESH_SIGNING_KEY"`

	Issuer          string        `env:"AUTH_ISSUER"`
	Audience        []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	ContextKey      string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration time.Duration `env:"AUTH_ACCESS_TOKEN_TTL"`
	RefreshTTL      time.Duration `env:"AUTH_REFRESH_TOKEN_TTL"`

	// SlidingRefresh selects the rotation policy: true renews the refresh
	// window on every rotation, false bounds the session to RefreshTTL from
	// first issuance.
	SlidingRefresh bool `env:"AUTH_USE_SLIDING_REFRESH"`

	VerificationTTL     time.Duration `env:"AUTH_VERIFICATION_TOKEN_TTL"`
	PasswordResetTTL    time.Duration `env:"AUTH_PASSWORD_RESET_TOKEN_TTL"`
	EmailResendCooldown time.Duration `env:"AUTH_EMAIL_RESEND_COOLDOWN"`
	EmailSendTimeout    time.Duration `env:"AUTH_EMAIL_SEND_TIMEOUT"`

	// BaseURL is used to build the verification and reset links embedded in
	// outgoing emails, e.g. https://app.example.com.
	BaseURL string `env:"AUTH_BASE_URL"`

	CookiePath    string `env:"AUTH_COOKIE_PATH" envDefault:"/"`
	CookieDomain  string `env:"AUTH_COOKIE_DOMAIN"`
	SecureCookies bool   `env:"AUTH_SECURE_COOKIES" envDefault:"true"`

	RejectedRouteKey     string `env:"AUTH_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	RejectedRouteDefault string `env:"AUTH_REJECTED_ROUTE_DEFAULT" envDefault:"/"`
}

// WithDefaults fills zero-valued optional fields and returns the config for
// chaining. Secrets and the base URL are left alone, Validate reports those.
func (c *Config) WithDefaults() *Config {
	if c.TokenExpiration == 0 {
		c.TokenExpiration = DefaultAccessTokenTTL
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = DefaultRefreshTokenTTL
	}
	if c.VerificationTTL == 0 {
		c.VerificationTTL = DefaultVerificationTTL
	}
	if c.PasswordResetTTL == 0 {
		c.PasswordResetTTL = DefaultPasswordResetTTL
	}
	if c.EmailResendCooldown == 0 {
		c.EmailResendCooldown = DefaultEmailResendCooldown
	}
	if c.EmailSendTimeout == 0 {
		c.EmailSendTimeout = DefaultEmailSendTimeout
	}
	if c.ContextKey == "" {
		c.ContextKey = "user"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.RejectedRouteKey == "" {
		c.RejectedRouteKey = "rejected_route"
	}
	if c.RejectedRouteDefault == "" {
		c.RejectedRouteDefault = "/"
	}
	return c
}

// Validate checks the config as a whole and reports every problem at once
// rather than failing on the first missing field.
func (c *Config) Validate() error {
	var missing []string
	var problems []string

	if c.SigningKey == "" {
		missing = append(missing, "SigningKey")
	}
	if c.RefreshSigningKey == "" {
		missing = append(missing, "RefreshSigningKey")
	}
	if c.Issuer == "" {
		missing = append(missing, "Issuer")
	}
	if len(c.Audience) == 0 {
		missing = append(missing, "Audience")
	}
	if c.BaseURL == "" {
		missing = append(missing, "BaseURL")
	}

	if c.SigningKey != "" && c.SigningKey == c.RefreshSigningKey {
		problems = append(problems, "SigningKey and RefreshSigningKey must differ")
	}
	if c.TokenExpiration < 0 {
		problems = append(problems, "TokenExpiration must be positive")
	}
	if c.RefreshTTL < 0 {
		problems = append(problems, "RefreshTTL must be positive")
	}

	if len(missing) == 0 && len(problems) == 0 {
		return nil
	}

	if len(missing) > 0 {
		problems = append([]string{
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		}, problems...)
	}

	return goerrors.New(
		fmt.Sprintf("invalid auth config: %s", strings.Join(problems, "; ")),
		goerrors.CategoryValidation,
	).
		WithTextCode(TextCodeConfigInvalid).
		WithMetadata(map[string]any{"missing": missing})
}

// RotationPolicy derives the refresh rotation policy from the config.
func (c *Config) RotationPolicy() RotationPolicy {
	if c.SlidingRefresh {
		return SlidingRotation()
	}
	return BoundedRotation(c.RefreshTTL)
}

// GetSigningKey returns the access-token signing key.
func (c *Config) GetSigningKey() string { return c.SigningKey }

// GetRefreshSigningKey returns the refresh-token signing key.
func (c *Config) GetRefreshSigningKey() string { return c.RefreshSigningKey }

// GetIssuer returns the token issuer.
func (c *Config) GetIssuer() string { return c.Issuer }

// GetAudience returns the token audience list.
func (c *Config) GetAudience() []string { return c.Audience }

// GetTokenExpiration returns the access-token lifetime.
func (c *Config) GetTokenExpiration() time.Duration { return c.TokenExpiration }

// GetExtendedTokenDuration returns the refresh-token lifetime.
func (c *Config) GetExtendedTokenDuration() time.Duration { return c.RefreshTTL }
