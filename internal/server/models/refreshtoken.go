package models

import "time"

// RefreshToken is a capability record proving a prior successful login.
// Only the SHA-256 digest of the opaque secret is ever stored; the raw
// secret exists transiently in the response to the client.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	IsRevoked bool
	CreatedAt time.Time
}
