// Package common defines shared constants and sentinel errors used across
// the server, the device client and the transports. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorForbidden     = errors.New("forbidden")
	ErrVersionConflict = errors.New("version conflict")

	// Client-correctable errors.
	ErrValidation          = errors.New("validation error")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different payload")
	ErrConflict            = errors.New("conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
