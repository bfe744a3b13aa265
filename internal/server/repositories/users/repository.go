// Package users declares the repository contract for user records.
package users

import (
	"context"
	"time"

	"github.com/crewgate/crewgate/internal/server/models"
)

// Repository defines persistence operations for user records. Soft-deleted
// rows are invisible to every lookup here; deletion marks the row and the
// row stays behind for bookkeeping.
type Repository interface {
	// Create inserts a new user and returns it with the generated fields set.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail returns the non-deleted user with the given normalized
	// email, or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID returns the non-deleted user with the given id, or
	// common.ErrorNotFound.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// List returns all non-deleted users ordered by creation time.
	List(ctx context.Context) ([]models.User, error)

	// Activate conditionally moves an INVITED user to ACTIVE, recording the
	// provider photo and login time. It reports the number of rows changed;
	// zero means the user was not in INVITED state (or does not exist).
	Activate(ctx context.Context, id string, photo string, at time.Time) (int64, error)

	// TouchLastLogin records a successful login for an ACTIVE user.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// Update patches role and/or status. Nil pointers leave a field
	// untouched. Reports the number of rows changed.
	Update(ctx context.Context, id string, role *models.Role, status *models.Status) (int64, error)

	// SoftDelete marks the user deleted and reports whether a row changed.
	SoftDelete(ctx context.Context, id string) (bool, error)

	// CountByEmail counts non-deleted users with the given email.
	CountByEmail(ctx context.Context, email string) (int64, error)
}
