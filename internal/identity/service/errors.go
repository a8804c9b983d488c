package service

import (
	"errors"
	"fmt"

	"vyre/backend/internal/security"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrSamePassword           = errors.New("new password must be different from current password")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrTooManyAttempts        = errors.New("too many login attempts")
	ErrSessionNotFound        = errors.New("session not found")
	// ErrInvalidToken is reported for unusable refresh, invitation and reset tokens.
	ErrInvalidToken = security.ErrInvalidToken
	// ErrInternal wraps store, hashing and signing failures. Its cause is never shown to clients.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
