// Package apperrors provides the domain error type shared by the service and
// transport layers.
package apperrors

import (
	"errors"
	"net/http"
)

// Code is a stable machine-readable error code clients can branch on.
type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeEventNotFound         Code = "EVENT_NOT_FOUND"
	CodeRegistrationNotFound  Code = "REGISTRATION_NOT_FOUND"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeDuplicateRegistration Code = "DUPLICATE_REGISTRATION"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeEmailTaken            Code = "EMAIL_TAKEN"
	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeInternal              Code = "INTERNAL"
)

// HTTPStatus maps the code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput, CodeDuplicateRegistration:
		return http.StatusBadRequest
	case CodeEventNotFound, CodeRegistrationNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeEmailTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // User-facing message, stable per code
	Cause   error  // Wrapped underlying error, never shown to clients
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(cause error) *Error {
	return Wrap(CodeInternal, "Server Error", cause)
}

// CodeOf extracts the code from err, treating foreign errors as internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidInput          = New(CodeInvalidInput, "invalid input")
	ErrEventNotFound         = New(CodeEventNotFound, "Event not found")
	ErrRegistrationNotFound  = New(CodeRegistrationNotFound, "Registration not found")
	ErrDuplicateRegistration = New(CodeDuplicateRegistration, "You are already registered for this event")
	ErrUnauthenticated       = New(CodeUnauthenticated, "Authentication required")
	ErrForbidden             = New(CodeForbidden, "Admin access required")
)
