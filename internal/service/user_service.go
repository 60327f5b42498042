package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/store"
)

// UserService provides user lookup and deletion for administrators.
type UserService interface {
	// Get returns the user with the given email.
	Get(ctx context.Context, email string) (*domain.User, error)

	// List returns all users.
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes the user together with their tokens, transfers and
	// cards in one transaction.
	Delete(ctx context.Context, email string) error
}

type userServiceImpl struct {
	db        *sql.DB
	users     store.UserStore
	cards     store.CardStore
	transfers store.TransferStore
	tokens    store.TokenStore
	logger    *slog.Logger
}

var _ UserService = (*userServiceImpl)(nil)

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	db *sql.DB,
	users store.UserStore,
	cards store.CardStore,
	transfers store.TransferStore,
	tokens store.TokenStore,
	logger *slog.Logger,
) (UserService, error) {
	switch {
	case db == nil:
		return nil, nilDependency("db")
	case users == nil:
		return nil, nilDependency("users")
	case cards == nil:
		return nil, nilDependency("cards")
	case transfers == nil:
		return nil, nilDependency("transfers")
	case tokens == nil:
		return nil, nilDependency("tokens")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		db:        db,
		users:     users,
		cards:     cards,
		transfers: transfers,
		tokens:    tokens,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

// Get implements UserService.Get
func (s *userServiceImpl) Get(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, translateStoreError(err, "user", "get")
	}
	return user, nil
}

// List implements UserService.List
func (s *userServiceImpl) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "user", "list")
	}
	return users, nil
}

// Delete implements UserService.Delete
func (s *userServiceImpl) Delete(ctx context.Context, email string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var tokens, transfers, cards int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if tokens, err = s.tokens.WithTx(tx).DeleteByOwner(ctx, email); err != nil {
			return err
		}
		if transfers, err = s.transfers.WithTx(tx).DeleteByUser(ctx, email); err != nil {
			return err
		}
		if cards, err = s.cards.WithTx(tx).DeleteByOwner(ctx, email); err != nil {
			return err
		}
		return s.users.WithTx(tx).Delete(ctx, email)
	})
	if err != nil {
		return translateStoreError(err, "user", "delete")
	}

	log.Info("user deleted",
		slog.Int64("tokens", tokens),
		slog.Int64("transfers", transfers),
		slog.Int64("cards", cards))
	return nil
}
