package sesam

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface the package depends on. Adapters for
// structured loggers only need to satisfy these four methods.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the projection of a user that token issuance needs.
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// EmailSender delivers the transactional emails the credential lifecycle
// produces. Implementations should honor ctx for cancellation; delivery is
// best-effort and failures never roll back the ticket that triggered them.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
}

// Session is the read side of an authenticated session, decoded from an
// access token.
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetUserRole() string
	GetIssuer() string
	GetAudience() []string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// TokenService issues, validates, and rotates access/refresh token pairs.
// The rotation policy is fixed when the service is constructed.
type TokenService interface {
	IssueInitial(identity Identity) (*TokenPair, error)
	VerifyAccess(token string) (*AccessClaims, error)
	VerifyRefresh(token string) (*RefreshClaims, error)
	Rotate(claims *RefreshClaims) (*TokenPair, error)
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "[DBG] "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "[INF] "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "[WRN] "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ERR] "+newline(format), args...)
}

func newline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
