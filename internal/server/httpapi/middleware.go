// Package httpapi exposes the REST surface of the server: session endpoints,
// user administration, and the services catalog. Handlers stay thin; all
// lifecycle rules live in the services layer.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewgate/crewgate/internal/server/authz"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/token"
)

const claimsKey = "accessClaims"

// Authenticate validates the Authorization bearer token and attaches the
// resolved claims to the request context. Every failure produces the same
// opaque 401 body.
func Authenticate(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := codec.VerifyAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles gates a route on the given role set via the access decision
// point. It runs after Authenticate; a missing claim set denies.
func RequireRoles(required ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GetClaims(c)
		if !authz.Allowed(claims, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access_denied"})
			return
		}
		c.Next()
	}
}

// GetClaims exposes the access-token claims attached by Authenticate.
func GetClaims(c *gin.Context) (*token.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*token.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
}
