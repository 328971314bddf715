package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
)

// Input limits.
const (
	MaxNameLength     = 50
	MaxBioLength      = 500
	MaxTitleLength    = 200
	MaxSummaryLength  = 500
	MaxCommentLength  = 2000
	MaxPasswordBytes  = auth.MaxPasswordBytes
	MaxUploadBytes    = 10 << 20
	minPasswordLength = 8
)

// validate is shared by every service. It is safe for concurrent use once the
// custom rules are registered.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so clients can match them to inputs.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("username", validateUsername)
	_ = validate.RegisterValidation("password", validatePassword)
}

// validateUsername allows ASCII letters, digits and underscores.
func validateUsername(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !isUsernameRune(r) {
			return false
		}
	}
	return true
}

func isUsernameRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// validatePassword checks the byte limit bcrypt imposes and the character
// classes: upper, lower, digit and symbol.
func validatePassword(fl validator.FieldLevel) bool {
	pw := fl.Field().String()
	if len(pw) > MaxPasswordBytes {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// validateStruct runs the struct tags of v and converts every violation into
// one apperror.ValidationErrors.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apperror.ValidationErrors(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "username":
		return "username may only contain letters, digits and underscores"
	case "password":
		return fmt.Sprintf("%s must be at most %d bytes and contain upper and lower case letters, a digit and a symbol",
			fe.Field(), MaxPasswordBytes)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
