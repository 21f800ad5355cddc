// Package app assembles the admin API process: storage, notification
// transport, HTTP surface and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/config"
	"github.com/saidutt46/switchboard-admin/internal/db"
	adminapi "github.com/saidutt46/switchboard-admin/internal/http/api/admin"
	"github.com/saidutt46/switchboard-admin/internal/notify"
)

// Version is the build version, overridden at link time.
var Version = "dev"

// Migrate opens the database and applies the schema, including the plugin
// scope constraint.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	return db.Migrate(conn)
}

// RunServer boots the admin API and blocks until ctx is cancelled or the
// server fails.
func RunServer(ctx context.Context, cfg *config.Config) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate: %w", errMigrate)
	}
	log.Info("database schema up to date")

	redisClient, errRedis := openRedis(cfg.RedisURL)
	if errRedis != nil {
		return errRedis
	}
	var notifier *notify.Notifier
	if redisClient != nil {
		notifier = notify.New(notify.NewRedisPublisher(redisClient))
		defer func() { _ = redisClient.Close() }()
	}

	engine := newEngine()
	adminapi.RegisterRoutes(engine, adminapi.Options{
		DB:           conn,
		Redis:        redisClient,
		Notifier:     notifier,
		Version:      Version,
		Environment:  cfg.Environment,
		KeyNamespace: cfg.KeyNamespace(),
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"address":     server.Addr,
			"environment": cfg.Environment,
			"version":     Version,
		}).Info("admin api listening")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serverErrors:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", errServe)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			_ = server.Close()
			return fmt.Errorf("shutdown: %w", errShutdown)
		}
		log.Info("server stopped")
		return nil
	}
}

// newEngine builds the gin engine with recovery and request logging.
func newEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	return engine
}

// requestLogger records one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("request")
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	conn, err := db.Open(cfg.Database.DSN, db.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return conn, nil
}

func closeDatabase(conn *gorm.DB) {
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.WithError(errClose).Error("failed to close database")
	}
}

// openRedis builds a Redis client from a URL. An empty URL disables change
// notifications; an unreachable broker does not, the notifier degrades at
// publish time instead.
func openRedis(redisURL string) (redis.UniversalClient, error) {
	if redisURL == "" {
		log.Warn("redis url not configured, config change notifications disabled")
		return nil, nil
	}
	opts, errParse := redis.ParseURL(redisURL)
	if errParse != nil {
		return nil, fmt.Errorf("parse redis url: %w", errParse)
	}
	return redis.NewClient(opts), nil
}
