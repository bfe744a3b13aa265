package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/logging"
	"github.com/crewgate/crewgate/internal/server/identity"
	"github.com/crewgate/crewgate/internal/server/services"
)

// AuthHandler serves the session lifecycle endpoints.
type AuthHandler struct {
	sessions *services.SessionService
	log      logging.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *services.SessionService, log logging.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, log: log}
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login admits a user based on the identity-provider profile relayed by the
// front end. The provider handshake itself happens outside this server.
func (h *AuthHandler) Login(c *gin.Context) {
	var profile identity.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), profile)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout revokes a refresh token. Always succeeds for well-formed requests.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.log.Error(c.Request.Context(), "logout failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// writeAuthError collapses every authentication failure into one opaque 401
// so callers cannot distinguish which check failed. Internal faults are the
// only exception.
func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrIdentityIncomplete),
		errors.Is(err, common.ErrNotInvited),
		errors.Is(err, common.ErrInvalidOrExpiredToken),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	default:
		h.log.Error(c.Request.Context(), "authentication failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}
