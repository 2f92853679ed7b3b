package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	authManager Pinger
	timeout     time.Duration
}

// NewHealthHandler creates a new HealthHandler. A nil pinger is reported as
// not configured.
func NewHealthHandler(authManager Pinger) *HealthHandler {
	return &HealthHandler{authManager: authManager, timeout: 2 * time.Second}
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "api-gateway",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready checks the auth manager
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.authManager == nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"checks": gin.H{"auth_manager": "not configured"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.authManager.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": gin.H{"auth_manager": "unavailable"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": gin.H{"auth_manager": "serving"},
	})
}
