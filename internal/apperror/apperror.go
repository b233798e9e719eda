// Package apperror carries the HTTP status alongside service errors so the
// transport layer can map them without string matching.
package apperror

import (
	"errors"
	"net/http"
)

const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeConflict     = "conflict"
	CodeNotFound     = "not_found"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal_error"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

// Unauthorized never says why the credential was refused.
func Unauthorized() *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Unavailable(message string) *Error {
	return New(http.StatusForbidden, CodeUnavailable, message)
}

// Transient wraps a storage failure. The message shown to callers is generic.
func Transient(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
}

// StatusOf returns the HTTP status for err; unknown errors map to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code for err; unknown errors map to CodeInternal.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// PublicMessage is the message safe to return to clients.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
