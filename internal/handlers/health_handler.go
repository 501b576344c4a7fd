package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafscan/internal/models"
	"leafscan/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	service *services.ReportService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *services.ReportService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready reports whether detection requests can be sent with the current configuration
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.service.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ReadyResponse{
			Status: "not_ready",
			Reason: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ReadyResponse{
		Status: "ok",
	})
}
