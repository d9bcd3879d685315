package sesam

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ProtectConfig tunes the Protect middleware.
type ProtectConfig struct {
	// ContextKey is where validated claims are stored in router locals.
	ContextKey string
	Logger     Logger
	// Optional lets unauthenticated requests through without claims instead
	// of rejecting them.
	Optional bool
}

// ErrAdminRequired rejects non-admin access to admin routes.
var ErrAdminRequired = goerrors.New("admin access required", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

// Protect validates the access token on every request and stores the claims
// in both router locals and the request context.
func Protect(tokens TokenService, transport *CookieTransport, cfgs ...ProtectConfig) router.MiddlewareFunc {
	cfg := ProtectConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			token, err := transport.AccessTokenFromContext(c)
			if err != nil {
				if cfg.Optional {
					return next(c)
				}
				return WriteError(c, cfg.Logger, err)
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				if cfg.Optional {
					cfg.Logger.Debug("optional auth failed, proceeding: %v", err)
					return next(c)
				}
				return WriteError(c, cfg.Logger, err)
			}

			c.Locals(cfg.ContextKey, claims)
			c.SetContext(WithClaimsContext(c.Context(), claims))

			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose claims do not carry the admin role.
// Must run after Protect.
func RequireAdmin(contextKey ...string) router.MiddlewareFunc {
	key := "user"
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, ok := GetRouterClaims(c, key)
			if !ok {
				return WriteError(c, defLogger{}, ErrUnableToFindSession)
			}

			if !IsAdmin(claims.Role()) {
				return c.JSON(http.StatusForbidden, ErrorEnvelope{
					Status: "error",
					Error: ErrorPayload{
						Code:    http.StatusForbidden,
						Message: ErrAdminRequired.Message,
					},
				})
			}

			return next(c)
		}
	}
}
