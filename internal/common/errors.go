// Package common defines shared constants and sentinel errors used across
// chantube layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"net/http"
)

var (
	// Error kinds. Every APIError carries exactly one of these.
	ErrorBadRequest   = errors.New("bad request")
	ErrorConflict     = errors.New("conflict")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorNotFound     = errors.New("not found")
	ErrorInternal     = errors.New("internal error")

	// Token codec errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// APIError is a failure that is safe to show to a client. Message is the
// client-facing text; Err, when set, is the underlying cause and is only
// used for logging.
type APIError struct {
	Kind    error
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// WithCause attaches an underlying error for logging. The client-facing
// message is unchanged.
func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

// StatusCode maps the error kind to an HTTP status.
func (e *APIError) StatusCode() int {
	return statusForKind(e.Kind)
}

func BadRequest(msg string) *APIError {
	return &APIError{Kind: ErrorBadRequest, Message: msg}
}

func Conflict(msg string) *APIError {
	return &APIError{Kind: ErrorConflict, Message: msg}
}

func Unauthorized(msg string) *APIError {
	return &APIError{Kind: ErrorUnauthorized, Message: msg}
}

func NotFound(msg string) *APIError {
	return &APIError{Kind: ErrorNotFound, Message: msg}
}

// Internal wraps cause behind an opaque message.
func Internal(msg string, cause error) *APIError {
	return &APIError{Kind: ErrorInternal, Message: msg, Err: cause}
}

// AsAPIError returns err as an *APIError. Errors that are not API errors are
// reported as opaque internal failures.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("internal server error", err)
}

func statusForKind(kind error) int {
	switch {
	case errors.Is(kind, ErrorBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, ErrorConflict):
		return http.StatusConflict
	case errors.Is(kind, ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
