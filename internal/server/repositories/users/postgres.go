// Package users provides a PostgreSQL-backed repository for user records.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

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

const userColumns = `id, email, name, photo, role, status, last_login, is_deleted, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Photo, &user.Role,
		&user.Status, &user.LastLogin, &user.IsDeleted, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Create inserts a new user row. The id is generated here when absent.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, email, name, photo, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.Photo, user.Role, user.Status).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// FindByEmail returns the non-deleted user with the given email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE email = $1 AND is_deleted = FALSE
	`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindByID returns the non-deleted user with the given id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE id = $1 AND is_deleted = FALSE
	`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// List returns all non-deleted users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE is_deleted = FALSE
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Photo, &user.Role,
			&user.Status, &user.LastLogin, &user.IsDeleted, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Activate flips an INVITED user to ACTIVE in one conditional update, so two
// racing first logins cannot both observe the transition.
func (r *PostgresRepository) Activate(ctx context.Context, id string, photo string, at time.Time) (int64, error) {
	query := `
		UPDATE users
		SET status = 'ACTIVE', photo = $2, last_login = $3
		WHERE id = $1 AND status = 'INVITED' AND is_deleted = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id, photo, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}

// TouchLastLogin records a login timestamp.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE users SET last_login = $2
		WHERE id = $1 AND is_deleted = FALSE
	`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update patches role and/or status of a non-deleted user.
func (r *PostgresRepository) Update(ctx context.Context, id string, role *models.Role, status *models.Status) (int64, error) {
	sets := ""
	args := []any{id}
	if role != nil {
		args = append(args, *role)
		sets += ", role = $" + strconv.Itoa(len(args))
	}
	if status != nil {
		args = append(args, *status)
		sets += ", status = $" + strconv.Itoa(len(args))
	}
	if sets == "" {
		return 0, nil
	}

	query := `UPDATE users SET ` + sets[2:] + ` WHERE id = $1 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}

// SoftDelete marks the user deleted. The row stays behind; every lookup in
// this repository filters it out from now on.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE users SET is_deleted = TRUE
		WHERE id = $1 AND is_deleted = FALSE
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

// CountByEmail counts non-deleted users holding the given email.
func (r *PostgresRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM users
		WHERE email = $1 AND is_deleted = FALSE
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
