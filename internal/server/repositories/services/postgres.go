// Package services provides a PostgreSQL-backed repository for the services
// catalog shown to signed-in users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/dbx"
	"github.com/crewgate/crewgate/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new catalog entry.
func (r *PostgresRepository) Create(ctx context.Context, svc *models.Service) (*models.Service, error) {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO services (id, name, description, url, icon)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		svc.ID, svc.Name, svc.Description, svc.URL, svc.Icon).Scan(&svc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return svc, nil
}

// FindByID returns one catalog entry or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Service, error) {
	query := `
		SELECT id, name, description, url, icon, created_at
		FROM services
		WHERE id = $1
	`
	svc := &models.Service{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&svc.ID, &svc.Name, &svc.Description, &svc.URL, &svc.Icon, &svc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return svc, nil
}

// List returns all catalog entries ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Service, error) {
	query := `
		SELECT id, name, description, url, icon, created_at
		FROM services
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.URL, &svc.Icon, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update patches one catalog entry.
func (r *PostgresRepository) Update(ctx context.Context, svc *models.Service) (int64, error) {
	query := `
		UPDATE services SET name = $2, description = $3, url = $4, icon = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, svc.ID, svc.Name, svc.Description, svc.URL, svc.Icon)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}

// Delete removes one catalog entry.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `
		DELETE FROM services
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected > 0, nil
}
