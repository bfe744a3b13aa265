package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/logging"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/services"
)

// UsersHandler serves the ADMIN-only user administration endpoints.
type UsersHandler struct {
	users *services.UserService
	log   logging.Logger
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(users *services.UserService, log logging.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: log}
}

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Photo     string     `json:"photo,omitempty"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Photo:     u.Photo,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time
		resp.LastLogin = &t
	}
	return resp
}

type inviteRequest struct {
	Email string      `json:"email" binding:"required"`
	Role  models.Role `json:"role" binding:"required"`
}

// Invite creates a new INVITED user.
func (h *UsersHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.users.Invite(c.Request.Context(), req.Email, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		case errors.Is(err, common.ErrIdentityIncomplete):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		default:
			h.log.Error(c.Request.Context(), "invite failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		}
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// List returns all non-deleted users.
func (h *UsersHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "list users failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

type updateUserRequest struct {
	Role   *models.Role   `json:"role"`
	Status *models.Status `json:"status"`
}

// Update patches role and/or status of one user.
func (h *UsersHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), req.Role, req.Status)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error(c.Request.Context(), "update user failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Remove soft-deletes a user and revokes their sessions.
func (h *UsersHandler) Remove(c *gin.Context) {
	if err := h.users.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error(c.Request.Context(), "remove user failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.Status(http.StatusNoContent)
}
