// Package authz is the role-based access decision point. It is pure: no
// side effects, no I/O, no clock.
package authz

import (
	"github.com/crewgate/crewgate/internal/server/token"
	"github.com/crewgate/crewgate/internal/server/models"
)

// Allowed decides whether the given claims satisfy a route's required roles.
//
// An empty requirement allows unconditionally: the route declared no
// restriction. Absent claims, an absent role, or a role outside the required
// set deny.
func Allowed(claims *token.Claims, required []models.Role) bool {
	if len(required) == 0 {
		return true
	}
	if claims == nil || claims.Role == "" {
		return false
	}
	for _, r := range required {
		if claims.Role == r {
			return true
		}
	}
	return false
}
