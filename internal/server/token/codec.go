// Package token implements the credential codec: signing and verifying
// access tokens, generating opaque refresh secrets, and producing the
// digest under which refresh secrets are stored and looked up.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/server/models"
)

// refreshSecretBytes is the number of random bytes behind a refresh secret.
// Hex-encoded this yields a 128-character opaque string (512 bits of entropy).
const refreshSecretBytes = 64

// Claims are the identity fields embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// SubjectID returns the user id the token was issued for.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Codec signs and verifies access tokens with a shared HMAC secret.
type Codec struct {
	secret   []byte
	validity time.Duration
}

// NewCodec constructs a Codec signing HS256 tokens valid for the given duration.
func NewCodec(secret []byte, validity time.Duration) *Codec {
	return &Codec{secret: secret, validity: validity}
}

// IssueAccessToken produces a signed, time-bounded token embedding the
// user's id, email, and role.
func (c *Codec) IssueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
		},
		Email: user.Email,
		Role:  user.Role,
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// VerifyAccessToken parses and validates a signed token. Tampered, expired,
// or otherwise malformed tokens yield common.ErrInvalidCredential.
func (c *Codec) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidCredential
	}
	if !t.Valid {
		return nil, common.ErrInvalidCredential
	}

	return claims, nil
}

// GenerateRefreshSecret produces a cryptographically random opaque secret.
// The secret is returned to the caller once and never persisted.
func GenerateRefreshSecret() (string, error) {
	return common.MakeRandHexString(refreshSecretBytes)
}

// HashSecret returns the hex-encoded SHA-256 digest of a refresh secret.
// The digest is deterministic; equality of digests implies equality of
// secrets for all practical purposes.
func HashSecret(rawSecret string) string {
	sum := sha256.Sum256([]byte(rawSecret))
	return hex.EncodeToString(sum[:])
}
