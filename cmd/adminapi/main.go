// Package main is the entrypoint for the Switchboard Admin API, the
// configuration control plane of the Switchboard gateway. It manages
// services, routes, consumers, API keys and plugins, and broadcasts
// committed changes to the data plane over Redis pub/sub.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/saidutt46/switchboard-admin/internal/app"
	"github.com/saidutt46/switchboard-admin/internal/config"
	"github.com/saidutt46/switchboard-admin/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("admin api failed to start")
	}
}

func run() error {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	// Local development reads a .env file; deployed environments set real
	// environment variables and the file is simply absent.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded configuration from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			return fmt.Errorf("migrate: %w", errMigrate)
		}
		log.Info("migrations applied")
		return nil
	}

	return app.RunServer(ctx, cfg)
}
