package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/repositories/repomanager"
)

// CatalogService manages the services catalog. Reads are open to any
// signed-in role; mutations are ADMIN-gated at the transport layer.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager) *CatalogService {
	return &CatalogService{db: db, repomanager: m}
}

// Create adds a catalog entry.
func (s *CatalogService) Create(ctx context.Context, svc *models.Service) (*models.Service, error) {
	created, err := s.repomanager.Services(s.db).Create(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("error creating service: %w", err)
	}
	return created, nil
}

// List returns all catalog entries.
func (s *CatalogService) List(ctx context.Context) ([]models.Service, error) {
	out, err := s.repomanager.Services(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}
	return out, nil
}

// Get returns one catalog entry.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Service, error) {
	svc, err := s.repomanager.Services(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error finding service: %w", err)
	}
	return svc, nil
}

// Update patches one catalog entry.
func (s *CatalogService) Update(ctx context.Context, svc *models.Service) (*models.Service, error) {
	repo := s.repomanager.Services(s.db)
	affected, err := repo.Update(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("error updating service: %w", err)
	}
	if affected == 0 {
		return nil, common.ErrorNotFound
	}
	return repo.FindByID(ctx, svc.ID)
}

// Remove deletes one catalog entry.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	deleted, err := s.repomanager.Services(s.db).Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("error deleting service: %w", err)
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}
