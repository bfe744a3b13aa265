// Package models declares the persistent row types shared by repositories
// and services.
package models

import (
	"database/sql"
	"time"
)

// Role governs authorization decisions.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// Status is the user lifecycle state. A user is created INVITED and moves to
// ACTIVE exactly once, on first successful login.
type Status string

const (
	StatusInvited Status = "INVITED"
	StatusActive  Status = "ACTIVE"
)

// User is an identity record. Email is unique across non-deleted users.
// Soft-deleted users are treated as nonexistent for authentication.
type User struct {
	ID        string
	Email     string
	Name      string
	Photo     string
	Role      Role
	Status    Status
	LastLogin sql.NullTime
	IsDeleted bool
	CreatedAt time.Time
}
