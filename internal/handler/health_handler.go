package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

var startTime = time.Now()

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db    *sqlx.DB
	redis Pinger
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when caching is disabled.
func NewHealthHandler(db *sqlx.DB, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth responds with service, database and cache status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := true
	dbStatus := "connected"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "disconnected"
		healthy = false
	}

	// cache failures degrade to the database, so they don't fail the check
	cacheStatus := "disabled"
	if h.redis != nil {
		cacheStatus = "connected"
		if err := h.redis.Ping(ctx); err != nil {
			cacheStatus = "disconnected"
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
