// Package main is the entry point for the bank-card backend. It loads
// configuration, connects to PostgreSQL, wires the stores and services,
// and runs the card expiration sweeper until it receives SIGINT or SIGTERM.
//
// Run with -migrate=<command> to apply database migrations instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/bankcards-api/internal/config"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/platform/postgres"
)

func main() {
	migrate := flag.String("migrate", "", fmt.Sprintf("run a migration command %v and exit", postgres.MigrationCommands))
	flag.Parse()

	if err := run(*migrate); err != nil {
		log.Fatalf("bankcards: %v", err)
	}
}

func run(migrateCommand string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("configuration loaded",
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("expiry_sweep_schedule", cfg.Cards.ExpirySweepSchedule))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, l)
	if err != nil {
		return err
	}

	if migrateCommand != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, migrateCommand, l)
	}

	app, err := newApplication(cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.Run(ctx)
}
