package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/redact"
	"github.com/phrazzld/bankcards-api/internal/store"
)

const cardColumns = `card_number, user_email, full_name_user, expiration_date, status, balance, request_to_blocked`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// Create implements store.CardStore.Create
// Returns store.ErrCardExists on a duplicate number and store.ErrUserNotFound
// when the owner row is missing.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		card.Number,
		card.OwnerEmail,
		card.OwnerName,
		card.ExpirationDate,
		string(card.Status),
		card.Balance,
		card.BlockRequested,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return MapUniqueViolation(err, store.ErrCardExists)
		case IsForeignKeyViolation(err):
			return fmt.Errorf("%w: owner of card %s", store.ErrUserNotFound, card.Masked())
		}
		log.Error("failed to create card",
			slog.String("card", card.Masked()),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("card", "create", "failed to insert card", MapError(err))
	}

	log.Info("card created",
		slog.String("card", card.Masked()),
		slog.Time("expiration_date", card.ExpirationDate))
	return nil
}

// GetByNumber implements store.CardStore.GetByNumber
func (s *PostgresCardStore) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	return s.get(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_number = $1`, number)
}

// GetByNumberForUpdate implements store.CardStore.GetByNumberForUpdate
func (s *PostgresCardStore) GetByNumberForUpdate(ctx context.Context, number string) (*domain.Card, error) {
	return s.get(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_number = $1 FOR UPDATE`, number)
}

func (s *PostgresCardStore) get(ctx context.Context, query, number string) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get card",
			slog.String("card", domain.MaskCardNumber(number)),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("card", "get", "failed to query card", MapError(err))
	}
	return card, nil
}

// ExistsByNumber implements store.CardStore.ExistsByNumber
func (s *PostgresCardStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE card_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, store.NewStoreError("card", "exists", "failed to query card", MapError(err))
	}
	return exists, nil
}

// ListByOwner implements store.CardStore.ListByOwner
func (s *PostgresCardStore) ListByOwner(ctx context.Context, email string) ([]*domain.Card, error) {
	return s.list(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_email = $1 ORDER BY card_number`, email)
}

// List implements store.CardStore.List
func (s *PostgresCardStore) List(ctx context.Context) ([]*domain.Card, error) {
	return s.list(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY card_number`)
}

func (s *PostgresCardStore) list(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("card", "list", "failed to query cards", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list", "failed to scan card", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "failed to iterate cards", err)
	}
	return cards, nil
}

// Update implements store.CardStore.Update
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET full_name_user = $2, status = $3, balance = $4, request_to_blocked = $5
		WHERE card_number = $1`,
		card.Number,
		card.OwnerName,
		string(card.Status),
		card.Balance,
		card.BlockRequested,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("card", card.Masked()),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("card", "update", "failed to update card", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("card updated",
		slog.String("card", card.Masked()),
		slog.String("status", string(card.Status)))
	return nil
}

// Delete implements store.CardStore.Delete
func (s *PostgresCardStore) Delete(ctx context.Context, number string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE card_number = $1`, number)
	if err != nil {
		return store.NewStoreError("card", "delete", "failed to delete card", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card deleted",
		slog.String("card", domain.MaskCardNumber(number)))
	return nil
}

// DeleteByOwner implements store.CardStore.DeleteByOwner
func (s *PostgresCardStore) DeleteByOwner(ctx context.Context, email string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE user_email = $1`, email)
	if err != nil {
		return 0, store.NewStoreError("card", "delete", "failed to delete owner cards", MapError(err))
	}
	return result.RowsAffected()
}

// ExpireDue implements store.CardStore.ExpireDue
func (s *PostgresCardStore) ExpireDue(ctx context.Context, asOf time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET status = $2
		WHERE expiration_date < $1 AND status <> $2`,
		domain.Today(asOf),
		string(domain.CardStatusExpired),
	)
	if err != nil {
		return 0, store.NewStoreError("card", "expire", "failed to expire cards", MapError(err))
	}
	return result.RowsAffected()
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card   domain.Card
		status string
	)
	err := row.Scan(
		&card.Number,
		&card.OwnerEmail,
		&card.OwnerName,
		&card.ExpirationDate,
		&status,
		&card.Balance,
		&card.BlockRequested,
	)
	if err != nil {
		return nil, err
	}

	card.Status = domain.CardStatus(status)
	if !card.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown card status %q", store.ErrInvalidEntity, status)
	}
	card.ExpirationDate = domain.Today(card.ExpirationDate)
	return &card, nil
}
