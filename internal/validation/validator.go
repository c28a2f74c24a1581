// Package validation provides request validation for the dashboard forms using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// FieldError describes one failed rule, in struct field order.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("isbn13", validateISBN13)
	_ = v.RegisterValidation("notrimspace", validateNoTrimSpace)
	_ = v.RegisterValidation("notblank", validateNotBlank)

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
// The error message names the first failing field; Details lists all of them.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make([]FieldError, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors = append(fieldErrors, FieldError{Field: e.Field(), Message: friendlyMessage(e)})
	}

	first := fieldErrors[0]
	return domainerrors.ValidationWithDetails(first.Field+" "+first.Message, fieldErrors)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "isbn13":
		return "must be exactly 13 digits"
	case "notrimspace":
		return "must not start or end with whitespace"
	default:
		return "is invalid"
	}
}

// validateISBN13 accepts exactly 13 ASCII digits. Checksums are not verified;
// the remote catalog stores ISBNs as plain numbers.
func validateISBN13(fl validator.FieldLevel) bool {
	field := fl.Field()
	var s string
	switch field.Kind() {
	case reflect.String:
		s = field.String()
	case reflect.Int, reflect.Int32, reflect.Int64:
		s = fmt.Sprintf("%d", field.Int())
	default:
		return false
	}
	return IsISBN13(s)
}

// IsISBN13 reports whether s is exactly 13 ASCII digits.
func IsISBN13(s string) bool {
	if len(s) != 13 {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func validateNoTrimSpace(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == strings.TrimSpace(s)
}

// validateNotBlank fails on empty or whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
