package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"leafscan/internal/config"
)

// ServiceHandler describes the configured detection service
type ServiceHandler struct {
	client config.ClientConfig
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(client config.ClientConfig) *ServiceHandler {
	return &ServiceHandler{
		client: client,
	}
}

// GetService returns the detection endpoint host and timeout. Credentials are never exposed.
func (h *ServiceHandler) GetService(c *gin.Context) {
	host := ""
	if u, err := url.Parse(h.client.Endpoint); err == nil {
		host = u.Host
	}

	c.JSON(http.StatusOK, gin.H{
		"host":            host,
		"timeout_seconds": h.client.Timeout.Seconds(),
		"authenticated":   h.client.Token != "",
	})
}
