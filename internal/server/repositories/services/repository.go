// Package services declares the repository contract for the services catalog.
package services

import (
	"context"

	"github.com/crewgate/crewgate/internal/server/models"
)

// Repository defines CRUD operations for catalog entries.
type Repository interface {
	Create(ctx context.Context, svc *models.Service) (*models.Service, error)
	FindByID(ctx context.Context, id string) (*models.Service, error)
	List(ctx context.Context) ([]models.Service, error)
	// Update patches the given entry and reports the number of rows changed.
	Update(ctx context.Context, svc *models.Service) (int64, error)
	// Delete removes an entry and reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
