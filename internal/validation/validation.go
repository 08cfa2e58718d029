// Package validation checks request payloads with go-playground/validator
// and reports failures as field/message pairs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationError names one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a list of field failures usable as an error.
type Errors []ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Collector gathers every failure of a request before reporting.
type Collector struct {
	errors []ValidationError
}

func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// Merge appends every failure from err when it is an Errors value.
// Any other non-nil error is recorded under field "request".
func (c *Collector) Merge(err error) {
	if err == nil {
		return
	}
	var errs Errors
	if errors.As(err, &errs) {
		c.errors = append(c.errors, errs...)
		return
	}
	c.errors = append(c.errors, ValidationError{Field: "request", Message: err.Error()})
}

func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// Err returns the accumulated failures as an error, or nil.
func (c *Collector) Err() error {
	if !c.HasErrors() {
		return nil
	}
	return Errors(c.errors)
}

// ValidateUTF8 rejects byte sequences that are not UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes rejects values holding a NUL byte.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.IndexByte(value, 0) >= 0 {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxItems returns an error if a batch holds more than max records.
func ValidateMaxItems(field string, n, max int) *ValidationError {
	if max > 0 && n > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum of %d records", max),
		}
	}
	return nil
}

// ValidateRequired rejects empty and whitespace-only values.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// Validator wraps go-playground/validator with field-path error conversion.
//
// Besides the stock tags it understands "text", which rejects invalid UTF-8
// and NUL bytes, and "notblank", which rejects whitespace-only strings.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports JSON field names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "text", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return true
		}
		s := fl.Field().String()
		return ValidateUTF8("", s) == nil && ValidateNoNullBytes("", s) == nil
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return true
		}
		return ValidateRequired("", fl.Field().String()) == nil
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct validates s and returns Errors on failure.
func (v *Validator) Struct(s any) error {
	if err := v.v.Struct(s); err != nil {
		return formatError(err)
	}
	return nil
}

func formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	out := make(Errors, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(e.Namespace()),
			Message: friendlyMessage(e),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("exceeds maximum length of %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "text":
		return "must be valid UTF-8 without null bytes"
	default:
		return "is invalid"
	}
}
