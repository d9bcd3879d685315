// Package mailer delivers the transactional emails produced by the credential
// lifecycle: verification links and password-reset links over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings plus the link layout for outgoing emails.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`

	// BaseURL is the public origin links point at, e.g. https://app.example.com.
	BaseURL string `env:"AUTH_BASE_URL"`

	VerifyPath string `env:"AUTH_VERIFY_PATH" envDefault:"/auth/verify-email"`
	ResetPath  string `env:"AUTH_RESET_PATH" envDefault:"/auth/reset-password"`

	// Human-readable lifetimes interpolated into the email bodies. They
	// should match the configured ticket TTLs.
	VerificationExpiry  string `env:"AUTH_VERIFICATION_EXPIRY_TEXT" envDefault:"24 hours"`
	PasswordResetExpiry string `env:"AUTH_RESET_EXPIRY_TEXT" envDefault:"1 hour"`
}

// NewConfigFromEnv parses the mailer configuration from environment variables.
func NewConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse mailer environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that every SMTP field is present.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("missing AUTH_BASE_URL")
	}
	return nil
}

// Mailer sends lifecycle emails over SMTP.
type Mailer struct {
	config    Config
	templates Templates
	dialer    *gomail.Dialer
	logger    zerolog.Logger
}

// NewMailer creates a Mailer with the given config and templates. Zero-valued
// template entries fall back to the defaults.
func NewMailer(cfg Config, templates Templates, logger zerolog.Logger) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Mailer{
		config:    cfg,
		templates: templates.merged(),
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger:    logger.With().Str("component", "mailer").Logger(),
	}, nil
}

// SendVerificationEmail emails the verification link for the given token.
func (m *Mailer) SendVerificationEmail(ctx context.Context, email, name, token string) error {
	link := m.buildLink(m.config.VerifyPath, token)

	return m.send(ctx, email, m.templates.Verification, TemplateData{
		Name:      name,
		Link:      link,
		ExpiresIn: m.config.VerificationExpiry,
	})
}

// SendPasswordResetEmail emails the password-reset link for the given token.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, email, name, token string) error {
	link := m.buildLink(m.config.ResetPath, token)

	return m.send(ctx, email, m.templates.PasswordReset, TemplateData{
		Name:      name,
		Link:      link,
		ExpiresIn: m.config.PasswordResetExpiry,
	})
}

func (m *Mailer) buildLink(path, token string) string {
	base := strings.TrimRight(m.config.BaseURL, "/")
	return fmt.Sprintf("%s%s?token=%s", base, path, url.QueryEscape(token))
}

func (m *Mailer) send(ctx context.Context, to string, tpl EmailTemplate, data TemplateData) error {
	var body bytes.Buffer
	if err := tpl.HTML.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", tpl.Subject)
	msg.SetBody("text/html", body.String())

	// gomail has no context support, so delivery runs in a goroutine and the
	// caller's deadline decides how long we wait for it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn().Str("to", to).Msg("email delivery abandoned by deadline")
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			m.logger.Error().Err(err).Str("to", to).Msg("email delivery failed")
			return err
		}
		m.logger.Debug().Str("to", to).Str("subject", tpl.Subject).Msg("email sent")
		return nil
	}
}

// LogMailer is a development sender that logs links instead of delivering
// them. Useful for local runs without an SMTP server.
type LogMailer struct {
	BaseURL    string
	VerifyPath string
	ResetPath  string
	Logger     zerolog.Logger
}

// NewLogMailer builds a LogMailer pointing at the given base URL.
func NewLogMailer(baseURL string, logger zerolog.Logger) *LogMailer {
	return &LogMailer{
		BaseURL:    baseURL,
		VerifyPath: "/auth/verify-email",
		ResetPath:  "/auth/reset-password",
		Logger:     logger,
	}
}

func (l *LogMailer) SendVerificationEmail(_ context.Context, email, name, token string) error {
	l.Logger.Info().
		Str("to", email).
		Str("name", name).
		Str("link", l.link(l.VerifyPath, token)).
		Msg("verification email")
	return nil
}

func (l *LogMailer) SendPasswordResetEmail(_ context.Context, email, name, token string) error {
	l.Logger.Info().
		Str("to", email).
		Str("name", name).
		Str("link", l.link(l.ResetPath, token)).
		Msg("password reset email")
	return nil
}

func (l *LogMailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", strings.TrimRight(l.BaseURL, "/"), path, url.QueryEscape(token))
}
