package sesam

import (
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	TextCodeEmailExists        = "EMAIL_EXISTS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeAlreadyVerified    = "ALREADY_VERIFIED"
	TextCodeTicketInvalid      = "TOKEN_INVALID_OR_EXPIRED"
	TextCodeCooldownActive     = "COOLDOWN_ACTIVE"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeRefreshExhausted   = "REFRESH_LIFETIME_EXCEEDED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeConfigInvalid      = "CONFIG_INVALID"
)

// ErrIdentityNotFound is returned when no account matches the identifier.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is the uniform credential failure. Login never
// discloses whether the email or the password was the wrong half.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotVerified is returned when a user logs in with correct credentials
// before confirming their email address.
var ErrEmailNotVerified = goerrors.New("please verify your email before logging in", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registering an email that already belongs
// to a verified account.
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(goerrors.CodeBadRequest)

// ErrAlreadyVerified is returned when requesting a verification email for an
// account that finished verification.
var ErrAlreadyVerified = goerrors.New("email is already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrTicketInvalidOrExpired is the single answer for every failed ticket
// redemption: unknown token, expired token, or a token that was already
// consumed. Callers cannot distinguish the three cases.
var ErrTicketInvalidOrExpired = goerrors.New("token is invalid or has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTicketInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrRefreshLifetimeExceeded is returned by bounded rotation once a refresh
// family has lived past its maximum lifetime.
var ErrRefreshLifetimeExceeded = goerrors.New("session has reached its maximum lifetime, please log in again", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshExhausted).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a JWT fails validation due to expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a JWT cannot be parsed or its signature
// does not check out.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession is returned when the request carries no credential in
// either the auth cookie or the Authorization header.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when a session payload cannot be decoded.
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims is returned when token claims cannot be mapped to a session.
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when an empty string is provided where a
// password or token is required.
var ErrNoEmptyString = goerrors.New("password cannot be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// NewCooldownError builds the resend-throttle error for verification emails.
// remaining is rounded up to whole minutes so the message never tells a user
// to wait zero minutes.
func NewCooldownError(remaining time.Duration) *goerrors.Error {
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return goerrors.New(
		fmt.Sprintf("please wait %d %s before requesting another email", minutes, unit),
		goerrors.CategoryRateLimit,
	).
		WithTextCode(TextCodeCooldownActive).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"retry_after_minutes": minutes})
}

// IsTokenExpiredError checks for expiry failures from token validation,
// including legacy string-matched errors from middleware layers.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenExpired
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError checks for malformed-token failures from token validation.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenMalformed
	}

	msg := err.Error()
	return strings.Contains(msg, "token is malformed") ||
		strings.Contains(msg, "missing or malformed JWT")
}

// IsCooldownError reports whether err is a verification resend throttle.
func IsCooldownError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeCooldownActive
	}
	return false
}

// IsTicketError reports whether err is a failed ticket redemption.
func IsTicketError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTicketInvalid
	}
	return false
}
