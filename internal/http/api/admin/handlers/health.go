package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

// HealthHandler reports process identity and dependency health.
type HealthHandler struct {
	db          *gorm.DB              // Database handle.
	redis       redis.UniversalClient // Notification broker; may be nil.
	version     string                // Build version string.
	environment string                // Deployment environment.
}

// NewHealthHandler constructs a health handler. The redis client may be nil
// when change notifications are disabled.
func NewHealthHandler(conn *gorm.DB, redisClient redis.UniversalClient, version, environment string) *HealthHandler {
	return &HealthHandler{db: conn, redis: redisClient, version: version, environment: environment}
}

// Root returns service identity information.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "switchboard-admin",
		"version":     h.version,
		"environment": h.environment,
	})
}

// Health probes the database and the notification broker. The process is
// healthy when the database responds; a broker outage only degrades change
// notifications, so it is reported without failing the check.
func (h *HealthHandler) Health(c *gin.Context) {
	databaseStatus := "ok"
	healthy := true
	if errPing := h.pingDatabase(c.Request.Context()); errPing != nil {
		databaseStatus = "unavailable"
		healthy = false
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		pingCtx, cancelPing := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		if errPing := h.redis.Ping(pingCtx).Err(); errPing != nil {
			redisStatus = "unavailable"
		}
		cancelPing()
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":      state,
		"environment": h.environment,
		"checks": gin.H{
			"database": databaseStatus,
			"redis":    redisStatus,
		},
	})
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		return errDB
	}
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}
