package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability gates readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	service string
	db      Pinger
	cache   Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service string, db, cache Pinger) *HealthHandler {
	return &HealthHandler{service: service, db: db, cache: cache}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.service,
	})
}

// Ready checks the database and the token blacklist
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks, ready := h.check(c.Request.Context())

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"service": h.service,
			"checks":  checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": h.service,
		"checks":  checks,
	})
}

// Watch runs the readiness checks every interval and reports each result to
// set, starting immediately. It returns when ctx is cancelled.
func (h *HealthHandler) Watch(ctx context.Context, interval time.Duration, set func(ready bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		_, ready := h.check(checkCtx)
		cancel()
		set(ready)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HealthHandler) check(ctx context.Context) (gin.H, bool) {
	checks := gin.H{}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "disconnected"
		ready = false
	} else {
		checks["database"] = "connected"
	}
	if err := h.cache.Ping(ctx); err != nil {
		checks["redis"] = "disconnected"
		ready = false
	} else {
		checks["redis"] = "connected"
	}
	return checks, ready
}
