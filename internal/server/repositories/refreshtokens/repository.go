// Package refreshtokens declares the repository contract for refresh-token
// records. Rows are keyed by the digest of the opaque secret; the raw secret
// never reaches this layer.
package refreshtokens

import (
	"context"
	"time"

	"github.com/crewgate/crewgate/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a new refresh token digest for userID expiring at
	// expiresAt. The expiry is fixed at issuance and never extended.
	Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error

	// FindByHash returns the non-revoked token row for the given digest,
	// or common.ErrorNotFound. Expired rows are still returned; expiry
	// enforcement is the caller's concern.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Revoke conditionally marks the token revoked and reports the number
	// of rows changed. The condition (not yet revoked) is what gives
	// rotation its single-use semantics: of two racing callers, exactly one
	// observes a changed row.
	Revoke(ctx context.Context, tokenHash string) (int64, error)

	// RevokeAllForUser revokes every outstanding token of a user.
	RevokeAllForUser(ctx context.Context, userID string) error
}
