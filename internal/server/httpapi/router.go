package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/token"
)

// NewRouter wires gin routes and middleware. Required roles are declared
// statically per route and checked before the handler runs.
func NewRouter(codec *token.Codec, auth *AuthHandler, users *UsersHandler, catalog *ServicesHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.Refresh)
		authGroup.POST("/logout", auth.Logout)
	}

	authed := r.Group("/", Authenticate(codec))

	usersGroup := authed.Group("/users", RequireRoles(models.RoleAdmin))
	{
		usersGroup.POST("", users.Invite)
		usersGroup.GET("", users.List)
		usersGroup.PATCH("/:id", users.Update)
		usersGroup.DELETE("/:id", users.Remove)
	}

	servicesGroup := authed.Group("/services")
	{
		servicesGroup.GET("", RequireRoles(models.RoleAdmin, models.RoleViewer), catalog.List)
		servicesGroup.GET("/:id", RequireRoles(models.RoleAdmin, models.RoleViewer), catalog.Get)
		servicesGroup.POST("", RequireRoles(models.RoleAdmin), catalog.Create)
		servicesGroup.PATCH("/:id", RequireRoles(models.RoleAdmin), catalog.Update)
		servicesGroup.DELETE("/:id", RequireRoles(models.RoleAdmin), catalog.Remove)
	}

	return r
}
