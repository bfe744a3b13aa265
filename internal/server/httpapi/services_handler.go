package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewgate/crewgate/internal/common"
	"github.com/crewgate/crewgate/internal/logging"
	"github.com/crewgate/crewgate/internal/server/models"
	"github.com/crewgate/crewgate/internal/server/services"
)

// ServicesHandler serves the services-catalog endpoints.
type ServicesHandler struct {
	catalog *services.CatalogService
	log     logging.Logger
}

// NewServicesHandler constructs a ServicesHandler.
func NewServicesHandler(catalog *services.CatalogService, log logging.Logger) *ServicesHandler {
	return &ServicesHandler{catalog: catalog, log: log}
}

type serviceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	URL         string `json:"url" binding:"required"`
	Icon        string `json:"icon"`
}

// Create adds a catalog entry.
func (h *ServicesHandler) Create(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	svc, err := h.catalog.Create(c.Request.Context(), &models.Service{
		Name: req.Name, Description: req.Description, URL: req.URL, Icon: req.Icon,
	})
	if err != nil {
		h.log.Error(c.Request.Context(), "create service failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// List returns the whole catalog.
func (h *ServicesHandler) List(c *gin.Context) {
	out, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "list services failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if out == nil {
		out = []models.Service{}
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one catalog entry.
func (h *ServicesHandler) Get(c *gin.Context) {
	svc, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error(c.Request.Context(), "get service failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Update patches one catalog entry.
func (h *ServicesHandler) Update(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	svc, err := h.catalog.Update(c.Request.Context(), &models.Service{
		ID: c.Param("id"), Name: req.Name, Description: req.Description, URL: req.URL, Icon: req.Icon,
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error(c.Request.Context(), "update service failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Remove deletes one catalog entry.
func (h *ServicesHandler) Remove(c *gin.Context) {
	if err := h.catalog.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error(c.Request.Context(), "remove service failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.Status(http.StatusNoContent)
}
