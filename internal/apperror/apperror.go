// Package apperror defines the error kinds shared by every layer of the API.
//
// ERROR KINDS:
// Services and repositories return one of the sentinel kinds below, wrapped in an
// *AppError carrying a human-readable message. The HTTP layer maps each kind to a
// status code with errors.Is; anything that is not an *AppError is treated as an
// opaque storage/internal failure and surfaces as a generic 500.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

// FieldError describes one violated input rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel kind
	Message string       // Human-readable error message
	Field   string       // Optional: single field causing the error
	Fields  []FieldError // Optional: every violated field (registration, profile updates)
}

func (e *AppError) Error() string {
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
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// ValidationErrors bundles several field violations into one error.
// The message joins every field message so logs stay readable.
func ValidationErrors(fields []FieldError) *AppError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	e := &AppError{
		Err:     ErrValidation,
		Message: strings.Join(msgs, "; "),
		Fields:  fields,
	}
	if len(fields) == 1 {
		e.Field = fields[0].Field
	}
	return e
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
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

// Unauthorized covers bad credentials and missing or invalid sessions (401).
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports a collaborator that is not configured or not reachable (503).
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}
