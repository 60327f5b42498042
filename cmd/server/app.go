package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/bankcards-api/internal/config"
	"github.com/phrazzld/bankcards-api/internal/platform/postgres"
	"github.com/phrazzld/bankcards-api/internal/service"
	"github.com/phrazzld/bankcards-api/internal/service/auth"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/phrazzld/bankcards-api/internal/task"
)

const shutdownTimeout = 30 * time.Second

// application holds the shared dependencies so they can be cleaned up together.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore     store.UserStore
	cardStore     store.CardStore
	transferStore store.TransferStore
	tokenStore    store.TokenStore

	tokenEngine     auth.TokenEngine
	authService     auth.AuthenticationService
	cardService     service.CardService
	transferService service.TransferService
	userService     service.UserService

	sweeper *task.ExpirySweeper
}

// newApplication wires stores and services on top of an open database.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.transferStore = postgres.NewPostgresTransferStore(db, logger)
	app.tokenStore = postgres.NewPostgresTokenStore(db, logger)

	var err error
	app.tokenEngine, err = auth.NewTokenEngine(cfg.Auth, app.tokenStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create token engine: %w", err)
	}
	logger.Info("token engine initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes),
		slog.Int("refresh_token_lifetime_minutes", cfg.Auth.RefreshTokenLifetimeMinutes))

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.authService, err = auth.NewAuthenticationService(db, app.userStore, app.tokenEngine, hasher, hasher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authentication service: %w", err)
	}

	app.cardService, err = service.NewCardService(app.cardStore, app.userStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	app.transferService, err = service.NewTransferService(db, app.cardStore, app.transferStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer service: %w", err)
	}

	app.userService, err = service.NewUserService(
		db,
		app.userStore,
		app.cardStore,
		app.transferStore,
		app.tokenStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.sweeper, err = task.NewExpirySweeper(cfg.Cards.ExpirySweepSchedule, app.cardService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create expiry sweeper: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// Run sweeps once at startup, then keeps the schedule running until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if _, err := app.sweeper.RunOnce(ctx); err != nil {
		app.logger.Warn("initial expiry sweep failed", slog.String("error", err.Error()))
	}

	app.sweeper.Start()
	<-ctx.Done()
	app.logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.sweeper.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop expiry sweeper: %w", err)
	}
	return nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
