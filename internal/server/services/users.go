package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/dbx"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/repositories/repomanager"
)

// UserService implements user administration: inviting, listing, updating,
// and removing accounts. All of it is ADMIN-gated at the transport layer.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewUserService constructs a UserService.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{db: db, repomanager: m}
}

// Invite creates a new user in INVITED state. The email must be unused among
// non-deleted users; a duplicate fails with common.ErrEmailTaken.
func (s *UserService) Invite(ctx context.Context, email string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, common.ErrIdentityIncomplete
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorInternal, role)
	}

	repo := s.repomanager.Users(s.db)
	n, err := repo.CountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if n > 0 {
		return nil, common.ErrEmailTaken
	}

	user, err := repo.Create(ctx, &models.User{
		Email:  email,
		Role:   role,
		Status: models.StatusInvited,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// List returns all non-deleted users.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	out, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return out, nil
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return user, nil
}

// Update patches role and/or status of a user.
func (s *UserService) Update(ctx context.Context, id string, role *models.Role, status *models.Status) (*models.User, error) {
	if role != nil && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorInternal, *role)
	}

	repo := s.repomanager.Users(s.db)
	affected, err := repo.Update(ctx, id, role, status)
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	if affected == 0 && (role != nil || status != nil) {
		return nil, common.ErrUserNotFound
	}

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error re-reading user: %w", err)
	}
	return user, nil
}

// Remove soft-deletes a user and revokes their outstanding refresh tokens in
// one transaction, so a removed account cannot rotate a session back in.
func (s *UserService) Remove(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.Users(tx).SoftDelete(ctx, id)
		if err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}
		if !deleted {
			return common.ErrUserNotFound
		}
		if err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, id); err != nil {
			return fmt.Errorf("error revoking tokens: %w", err)
		}
		return nil
	})
}
