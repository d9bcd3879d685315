package sesam

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type rotationMode int

const (
	rotationSliding rotationMode = iota
	rotationBounded
)

// RotationPolicy decides what happens to the refresh window when a pair is
// rotated. Build one with SlidingRotation or BoundedRotation; the zero value
// behaves like SlidingRotation.
type RotationPolicy struct {
	mode        rotationMode
	maxLifetime time.Duration
}

// SlidingRotation renews the refresh window on every rotation, so a session
// stays alive as long as the client keeps refreshing.
func SlidingRotation() RotationPolicy {
	return RotationPolicy{mode: rotationSliding}
}

// BoundedRotation caps the whole refresh family at maxLifetime from the
// moment the first pair was issued. Rotation past that point fails with
// ErrRefreshLifetimeExceeded.
func BoundedRotation(maxLifetime time.Duration) RotationPolicy {
	return RotationPolicy{mode: rotationBounded, maxLifetime: maxLifetime}
}

// Sliding reports whether the policy renews the window on rotation.
func (p RotationPolicy) Sliding() bool {
	return p.mode == rotationSliding
}

// TokenPair is an access/refresh token set plus the expiries the transport
// layer needs to size cookies correctly.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenServiceImpl implements TokenService with HMAC-signed JWTs. Access and
// refresh tokens use separate signing keys so neither kind validates as the
// other.
type TokenServiceImpl struct {
	signingKey        []byte
	refreshSigningKey []byte
	accessTTL         time.Duration
	refreshTTL        time.Duration
	policy            RotationPolicy
	issuer            string
	audience          jwt.ClaimStrings
	logger            Logger
	now               func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl.
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenLogger sets the logger used by the service.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a TokenService from the given config.
func NewTokenService(cfg *Config, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey:        []byte(cfg.SigningKey),
		refreshSigningKey: []byte(cfg.RefreshSigningKey),
		accessTTL:         cfg.TokenExpiration,
		refreshTTL:        cfg.RefreshTTL,
		policy:            cfg.RotationPolicy(),
		issuer:            cfg.Issuer,
		audience:          jwt.ClaimStrings(cfg.Audience),
		logger:            defLogger{},
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// IssueInitial mints a fresh access/refresh pair for the identity. The
// refresh token's oiat claim is stamped with the current time, anchoring the
// family for bounded rotation.
func (ts *TokenServiceImpl) IssueInitial(identity Identity) (*TokenPair, error) {
	if identity == nil {
		return nil, errors.New("identity is required", errors.CategoryBadInput)
	}

	now := ts.now()
	return ts.issuePair(identity.ID(), identity.Role(), now, now.Add(ts.refreshTTL), now)
}

// VerifyAccess validates an access token and returns its claims.
func (ts *TokenServiceImpl) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parseInto(token, claims, ts.signingKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (ts *TokenServiceImpl) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parseInto(token, claims, ts.refreshSigningKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// Rotate exchanges validated refresh claims for a new pair. Sliding rotation
// re-anchors the family at now; bounded rotation keeps the original anchor
// and shrinks the remaining window, failing once it hits zero.
func (ts *TokenServiceImpl) Rotate(claims *RefreshClaims) (*TokenPair, error) {
	if claims == nil {
		return nil, errors.New("refresh claims are required", errors.CategoryBadInput)
	}

	now := ts.now()

	if ts.policy.Sliding() {
		return ts.issuePair(claims.UserID(), claims.Role(), now, now.Add(ts.refreshTTL), now)
	}

	anchor := claims.FamilyIssuedAt()
	maxLifetime := ts.policy.maxLifetime
	if maxLifetime == 0 {
		maxLifetime = ts.refreshTTL
	}

	remaining := maxLifetime - now.Sub(anchor)
	if remaining <= 0 {
		return nil, ErrRefreshLifetimeExceeded
	}

	return ts.issuePair(claims.UserID(), claims.Role(), now, now.Add(remaining), anchor)
}

func (ts *TokenServiceImpl) issuePair(uid, role string, now, refreshExpiry, familyIssuedAt time.Time) (*TokenPair, error) {
	accessExpiry := now.Add(ts.accessTTL)

	access := &AccessClaims{
		RegisteredClaims: ts.registered(uid, now, accessExpiry),
		UID:              uid,
		UserRole:         role,
	}

	refresh := &RefreshClaims{
		RegisteredClaims: ts.registered(uid, now, refreshExpiry),
		UID:              uid,
		UserRole:         role,
		OriginalIssuedAt: jwt.NewNumericDate(familyIssuedAt),
	}

	accessToken, err := ts.sign(access, ts.signingKey)
	if err != nil {
		return nil, err
	}

	refreshToken, err := ts.sign(refresh, ts.refreshSigningKey)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (ts *TokenServiceImpl) registered(uid string, now, expiry time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ts.issuer,
		Subject:   uid,
		Audience:  ts.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (ts *TokenServiceImpl) parseInto(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		return ErrTokenMalformed
	}

	return nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
