// Package common defines shared constants and sentinel errors used across
// the layers of Crewgate. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal  = errors.New("internal error")
	ErrorForbidden = errors.New("access denied")

	// Authentication lifecycle errors. All of these surface to HTTP callers
	// as the same opaque "invalid credentials" response; the distinct values
	// exist for internal matching and tests only.
	ErrIdentityIncomplete    = errors.New("identity profile has no email")
	ErrNotInvited            = errors.New("user is not invited")
	ErrInconsistentState     = errors.New("user vanished after update")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredential     = errors.New("invalid credential")

	// User administration errors.
	ErrEmailTaken = errors.New("email already taken")
)
