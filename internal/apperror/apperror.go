// Package apperror defines the typed errors the service layer returns.
//
// Every business-rule failure is an *AppError wrapping one of the sentinel
// values below. The HTTP layer maps sentinels to status codes with
// errors.Is, and reads Message/Field/Data with errors.As:
//
//	service:  return apperror.Conflict("User with this email already exists", map[string]any{"email": email})
//	handler:  errors.Is(err, apperror.ErrConflict) → 409
//
// Errors that are NOT an *AppError are treated as internal failures and
// never shown to the client.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPolicy       = errors.New("policy violation")
	ErrUpstream     = errors.New("upstream failure")
)

type AppError struct {
	Err     error          // sentinel
	Message string         // Human-readable error message
	Field   string         // Optional: field causing the error
	Data    map[string]any // Optional: structured payload echoed to the client
	Cause   error          // Optional: underlying error, logged but never shown
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. data carries the offending
// value so the client can tell which input collided.
func Conflict(message string, data map[string]any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Data:    data,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is used for every credential or token failure. Callers pass
// a uniform message so the response never says which check failed.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// PolicyViolation reports an operation the data model allows but the
// application refuses, such as deleting a category that is still in use.
func PolicyViolation(message string) *AppError {
	return &AppError{
		Err:     ErrPolicy,
		Message: message,
	}
}

// Upstream wraps a failure of an external collaborator (email, text
// generation). cause is kept for logs only.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Cause:   cause,
	}
}
