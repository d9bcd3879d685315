package sesam

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// Cookie names used for the token pair.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
)

// HeaderAccessTokenExpiry tells clients how long access tokens live, in
// seconds, so they can schedule refreshes without decoding the JWT.
const HeaderAccessTokenExpiry = "X-Access-Token-Expiry"

// CookieTransport moves token pairs between the engine and the browser. Both
// tokens ride in HTTP-only cookies; API clients may send the access token in
// the Authorization header instead.
type CookieTransport struct {
	cfg    *Config
	logger Logger
}

// NewCookieTransport builds a transport from the config's cookie settings.
func NewCookieTransport(cfg *Config) *CookieTransport {
	return &CookieTransport{
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (t *CookieTransport) WithLogger(l Logger) *CookieTransport {
	if l != nil {
		t.logger = l
	}
	return t
}

// SetAuthCookies writes both tokens. Cookie expiry mirrors token expiry, so
// under bounded rotation the refresh cookie shrinks along with the remaining
// session lifetime.
func (t *CookieTransport) SetAuthCookies(c router.Context, pair *TokenPair) {
	if pair == nil {
		return
	}

	t.setCookie(c, CookieAccessToken, pair.AccessToken, pair.AccessExpiresAt)
	t.setCookie(c, CookieRefreshToken, pair.RefreshToken, pair.RefreshExpiresAt)

	c.SetHeader(HeaderAccessTokenExpiry, strconv.FormatInt(int64(t.cfg.TokenExpiration.Seconds()), 10))
}

// ClearAuthCookies expires both token cookies.
func (t *CookieTransport) ClearAuthCookies(c router.Context) {
	t.cookieDel(c, CookieAccessToken)
	t.cookieDel(c, CookieRefreshToken)
}

// AccessTokenFromContext extracts the access token from the request: cookie
// first, then the Authorization header with a Bearer scheme.
func (t *CookieTransport) AccessTokenFromContext(c router.Context) (string, error) {
	if token := c.Cookies(CookieAccessToken); token != "" {
		return token, nil
	}

	header := c.Header("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token, nil
		}
	}

	return "", ErrUnableToFindSession
}

// RefreshTokenFromContext extracts the refresh token cookie. Returns an empty
// string when absent; callers may fall back to a request payload.
func (t *CookieTransport) RefreshTokenFromContext(c router.Context) string {
	return c.Cookies(CookieRefreshToken)
}

func (t *CookieTransport) setCookie(c router.Context, name, value string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     t.cfg.CookiePath,
		Domain:   t.cfg.CookieDomain,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   t.cfg.SecureCookies,
		SameSite: "Lax",
	})
}

func (t *CookieTransport) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     t.cfg.CookiePath,
		Domain:   t.cfg.CookieDomain,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   t.cfg.SecureCookies,
		SameSite: "Lax",
	})
}
