package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafscan/internal/models"
)

// StatsSource provides aggregate detection statistics
type StatsSource interface {
	GetStats() *models.StatsResponse
}

// StatsHandler serves detection statistics
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{
		source: source,
	}
}

// GetStats returns request totals, healthy and diseased leaf counts and failures by category
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.source.GetStats())
}
