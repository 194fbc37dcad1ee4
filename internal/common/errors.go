// Package common defines shared constants and sentinel errors used across
// client and server layers of Pawkit. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Sync errors. ErrRejected marks a request the server refused with a 4xx
	// status: the mutation is unrecoverable and must not be retried.
	ErrRejected    = errors.New("rejected by server")
	ErrUnavailable = errors.New("server unavailable")

	// Validation errors.
	ErrUnknownRecordKind = errors.New("unknown record kind")
	ErrInvalidPayload    = errors.New("invalid record payload")
	ErrInvalidURL        = errors.New("invalid or disallowed url")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrLoginAlreadyExists  = errors.New("login already exists")
	ErrInvalidLoginDetails = errors.New("invalid login/password")
)
