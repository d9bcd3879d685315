package sesam

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// SuccessEnvelope is the JSON wrapper for successful responses.
type SuccessEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope is the JSON wrapper for failed responses.
type ErrorEnvelope struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

// ErrorPayload carries the public parts of an error.
type ErrorPayload struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteSuccess renders a success envelope.
func WriteSuccess(c router.Context, status int, data any, message string) error {
	return c.JSON(status, SuccessEnvelope{
		Status:  "success",
		Data:    data,
		Message: message,
	})
}

// WriteError renders an error envelope. Rich errors expose their message,
// text code, and safe metadata; anything else collapses to a generic 500 so
// internal details never leak to the client.
func WriteError(c router.Context, logger Logger, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		logger.Error("unhandled error: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorEnvelope{
			Status: "error",
			Error: ErrorPayload{
				Code:    http.StatusInternalServerError,
				Message: "an unexpected error occurred",
			},
		})
	}

	status := statusForError(richErr)
	if status >= http.StatusInternalServerError {
		logger.Error("internal error: %v", richErr)
		return c.JSON(status, ErrorEnvelope{
			Status: "error",
			Error: ErrorPayload{
				Code:    status,
				Message: "an unexpected error occurred",
			},
		})
	}

	return c.JSON(status, ErrorEnvelope{
		Status: "error",
		Error: ErrorPayload{
			Code:    status,
			Message: richErr.Message,
			Kind:    richErr.TextCode,
			Details: richErr.Metadata,
		},
	})
}

func statusForError(err *goerrors.Error) int {
	if err.Code >= http.StatusBadRequest {
		return err.Code
	}

	switch err.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict, goerrors.CategoryRateLimit:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
