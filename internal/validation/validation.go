// Package validation configures go-playground/validator for request payloads
// and turns its failures into apperror validation errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"interview-scheduler/internal/apperror"
)

// New returns a validator that reports fields by their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONName)
	return v
}

// JSONName is the RegisterTagNameFunc used by New.
func JSONName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Messages overrides the message for a failed tag, keyed by tag name.
type Messages map[string]string

// Error converts the first failed field of err into an apperror validation
// error. Errors that did not come from the validator pass through untouched.
func Error(err error, overrides Messages) error {
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	if msg, ok := overrides[fe.Tag()]; ok {
		return apperror.Validation(msg)
	}
	return apperror.Validation(message(fe))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "email":
		return "invalid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "http_url":
		return field + " must be an http(s) URL"
	}
	return "invalid " + field
}
