package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ValidationErrors wraps ErrValidation",
			err:       ValidationErrors([]FieldError{{Field: "username", Message: "too short"}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("wrong credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("ai is not configured"),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "wrapped Forbidden still matches",
			err:       fmt.Errorf("updating post: %w", Forbidden("not the author")),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("post", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrForbidden",
			err:       Unauthorized("login required"),
			target:    ErrForbidden,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("post", "abc123"),
			wantMessage: "post not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "Conflict message includes resource and key",
			err:         Conflict("user", "alice"),
			wantMessage: "user already exists: alice",
		},
		{
			name: "ValidationErrors joins every field message",
			err: ValidationErrors([]FieldError{
				{Field: "username", Message: "username is too short"},
				{Field: "password", Message: "password needs a digit"},
			}),
			wantMessage: "username is too short; password needs a digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if len(err.Fields) != 1 || err.Fields[0].Field != "email" {
		t.Errorf("Fields = %+v, want a single email entry", err.Fields)
	}
}

func TestValidationErrorsKeepsEveryField(t *testing.T) {
	err := ValidationErrors([]FieldError{
		{Field: "username", Message: "a"},
		{Field: "name", Message: "b"},
		{Field: "password", Message: "c"},
	})

	if len(err.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(err.Fields))
	}
	if err.Field != "" {
		t.Errorf("Field = %q, want empty for multi-field errors", err.Field)
	}
}
