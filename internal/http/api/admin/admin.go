// Package admin wires the configuration API route table.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/http/api/admin/handlers"
	"github.com/saidutt46/switchboard-admin/internal/notify"
)

// Options carries the dependencies of the admin route table.
type Options struct {
	DB           *gorm.DB              // Database handle.
	Redis        redis.UniversalClient // Notification broker; may be nil.
	Notifier     *notify.Notifier      // Change notifier; may be nil.
	Version      string                // Build version string.
	Environment  string                // Deployment environment.
	KeyNamespace string                // Environment tag for generated API keys.
}

// RegisterRoutes registers all admin API routes on the engine.
func RegisterRoutes(r *gin.Engine, opts Options) {
	if r == nil || opts.DB == nil {
		return
	}

	r.Use(corsMiddleware())

	healthHandler := handlers.NewHealthHandler(opts.DB, opts.Redis, opts.Version, opts.Environment)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)

	serviceHandler := handlers.NewServiceHandler(opts.DB, opts.Notifier)
	r.POST("/services", serviceHandler.Create)
	r.GET("/services", serviceHandler.List)
	r.GET("/services/:id", serviceHandler.Get)
	r.PUT("/services/:id", serviceHandler.Update)
	r.DELETE("/services/:id", serviceHandler.Delete)
	r.GET("/services/:id/stats", serviceHandler.Stats)

	targetHandler := handlers.NewServiceTargetHandler(opts.DB)
	r.POST("/services/:id/targets", targetHandler.Create)
	r.GET("/services/:id/targets", targetHandler.List)
	r.PUT("/services/:id/targets/:target_id", targetHandler.Update)
	r.DELETE("/services/:id/targets/:target_id", targetHandler.Delete)

	routeHandler := handlers.NewRouteHandler(opts.DB, opts.Notifier)
	r.POST("/routes", routeHandler.Create)
	r.GET("/routes", routeHandler.List)
	r.GET("/routes/:id", routeHandler.Get)
	r.PUT("/routes/:id", routeHandler.Update)
	r.DELETE("/routes/:id", routeHandler.Delete)
	r.GET("/routes/:id/details", routeHandler.Details)

	consumerHandler := handlers.NewConsumerHandler(opts.DB, opts.Notifier)
	r.POST("/consumers", consumerHandler.Create)
	r.GET("/consumers", consumerHandler.List)
	r.GET("/consumers/:id", consumerHandler.Get)
	r.PUT("/consumers/:id", consumerHandler.Update)
	r.DELETE("/consumers/:id", consumerHandler.Delete)

	keyHandler := handlers.NewConsumerKeyHandler(opts.DB, opts.KeyNamespace)
	r.POST("/consumers/:id/keys", keyHandler.Create)
	r.GET("/consumers/:id/keys", keyHandler.List)
	r.PATCH("/consumers/:id/keys/:key_id/disable", keyHandler.Disable)
	r.PATCH("/consumers/:id/keys/:key_id/enable", keyHandler.Enable)
	r.DELETE("/consumers/:id/keys/:key_id", keyHandler.Revoke)

	pluginHandler := handlers.NewPluginHandler(opts.DB, opts.Notifier)
	r.GET("/plugins/available", pluginHandler.Available)
	r.POST("/plugins", pluginHandler.Create)
	r.GET("/plugins", pluginHandler.List)
	r.GET("/plugins/:id", pluginHandler.Get)
	r.PUT("/plugins/:id", pluginHandler.Update)
	r.DELETE("/plugins/:id", pluginHandler.Delete)
}

// corsMiddleware allows browser-based dashboards to call the API from any
// origin. The admin API is expected to sit behind network-level access
// control, not origin checks.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "600")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
