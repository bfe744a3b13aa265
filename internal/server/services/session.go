// Package services contains server-side business logic. This file implements
// SessionService, which owns the authentication lifecycle: login against an
// invited account, refresh-token rotation, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/dbx"
	"github.com/crewgate/crewgate/internal/server/config"
	"github.com/crewgate/crewgate/internal/server/identity"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/repositories/repomanager"
	"github.com/crewgate/crewgate/internal/server/token"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides authentication-related operations:
//   - Login: admit an invited user based on a provider profile and mint tokens
//   - Refresh: rotate a refresh token and mint a new pair
//   - Logout: revoke a refresh token
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	codec                        *token.Codec
	refreshTokenValidityDuration time.Duration
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, codec *token.Codec, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		codec:                        codec,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login admits a user based on the normalized provider profile.
//
// Accounts are never auto-created: a profile whose email matches no invited
// or active user fails with common.ErrNotInvited. The first successful login
// moves the user from INVITED to ACTIVE, capturing the provider photo; later
// logins only record the login time. Every successful login mints a fresh
// token pair and persists one new refresh-token row.
func (s *SessionService) Login(ctx context.Context, profile identity.Profile) (*TokenPair, error) {
	email := profile.NormalizedEmail()
	if email == "" {
		return nil, common.ErrIdentityIncomplete
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotInvited
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	now := time.Now()
	switch user.Status {
	case models.StatusActive:
		if err := repo.TouchLastLogin(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("error updating last login: %w", err)
		}
	case models.StatusInvited:
		if _, err := repo.Activate(ctx, user.ID, profile.Picture, now); err != nil {
			return nil, fmt.Errorf("error activating user: %w", err)
		}
		// Re-read to return the canonical post-update state. A concurrent
		// first login may have won the Activate race; either way the row
		// must now exist and be ACTIVE.
		user, err = repo.FindByID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrInconsistentState
			}
			return nil, fmt.Errorf("error re-reading user: %w", err)
		}
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// Refresh validates a raw refresh secret, rotates the matching token, and
// returns a fresh pair.
//
// The token is consumed by a conditional revoke: of two concurrent calls
// presenting the same secret, exactly one flips is_revoked and proceeds; the
// other observes an already-consumed row and fails. Revoke and reissue run in
// one transaction. Every failure surfaces as ErrInvalidOrExpiredToken (or
// ErrUserNotFound for a dangling owner) without distinguishing the cause.
func (s *SessionService) Refresh(ctx context.Context, rawSecret string) (*TokenPair, error) {
	digest := token.HashSecret(rawSecret)

	repo := s.repomanager.RefreshTokens(s.db)
	row, err := repo.FindByHash(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if row.ExpiresAt.Before(time.Now()) {
		// Expired tokens are unusable even though not flagged revoked.
		return nil, common.ErrInvalidOrExpiredToken
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error resolving token owner: %w", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		affected, err := s.repomanager.RefreshTokens(tx).Revoke(ctx, digest)
		if err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		if affected == 0 {
			// Someone else consumed the token between our read and this
			// update. Single-use semantics: this caller loses.
			return common.ErrInvalidOrExpiredToken
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the token matching the supplied secret. Revoking an
// already-revoked or unknown token is not an error; from the caller's
// perspective logout always succeeds.
func (s *SessionService) Logout(ctx context.Context, rawSecret string) error {
	digest := token.HashSecret(rawSecret)

	if _, err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, digest); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

func (s *SessionService) generateTokenPair(ctx context.Context, user *models.User, db dbx.DBTX) (*TokenPair, error) {
	access, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := token.GenerateRefreshSecret()
	if err != nil {
		return nil, common.ErrorInternal
	}

	expiresAt := time.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, token.HashSecret(refresh), expiresAt); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
