// Package apperror defines the domain error taxonomy shared by every layer.
//
// Each AppError wraps one of the sentinel errors below, so callers can branch
// with errors.Is while still carrying a human-readable message. The handler
// package is the only place that turns these into HTTP status codes.
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
	ErrStore        = errors.New("store error")
	ErrUpstream     = errors.New("upstream error")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// NotFound reports that the resource identified by key does not exist.
func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, key),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness or state conflict. HTTP handlers map this to 409.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Store wraps an underlying data-layer failure.
func Store(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStore,
		Message: op,
		Cause:   cause,
	}
}

// Upstream wraps a failure of an external collaborator such as the GitHub API.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: service + " request failed",
		Cause:   cause,
	}
}
