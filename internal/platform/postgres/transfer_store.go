package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/redact"
	"github.com/phrazzld/bankcards-api/internal/store"
)

const transferColumns = `id, user_email, from_card_number, to_card_number, amount, time`

// PostgresTransferStore implements store.TransferStore on PostgreSQL.
type PostgresTransferStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTransferStore creates a transfer ledger backed by db.
func NewPostgresTransferStore(db store.DBTX, logger *slog.Logger) *PostgresTransferStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTransferStore{
		db:     db,
		logger: logger.With(slog.String("component", "transfer_store")),
	}
}

var _ store.TransferStore = (*PostgresTransferStore)(nil)

// Create implements store.TransferStore.Create
func (s *PostgresTransferStore) Create(ctx context.Context, transfer *domain.Transfer) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO card_transfers (user_email, from_card_number, to_card_number, amount, time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		transfer.UserEmail,
		transfer.FromCardNumber,
		transfer.ToCardNumber,
		transfer.Amount,
		transfer.CreatedAt,
	).Scan(&transfer.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record transfer",
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("transfer", "create", "failed to insert transfer", MapError(err))
	}
	return nil
}

// List implements store.TransferStore.List
func (s *PostgresTransferStore) List(ctx context.Context) ([]*domain.Transfer, error) {
	return s.list(ctx, `SELECT `+transferColumns+` FROM card_transfers ORDER BY time DESC, id DESC`)
}

// ListByUser implements store.TransferStore.ListByUser
func (s *PostgresTransferStore) ListByUser(ctx context.Context, email string) ([]*domain.Transfer, error) {
	return s.list(ctx, `SELECT `+transferColumns+` FROM card_transfers
		WHERE user_email = $1 ORDER BY time DESC, id DESC`, email)
}

func (s *PostgresTransferStore) list(ctx context.Context, query string, args ...any) ([]*domain.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("transfer", "list", "failed to query transfers", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var transfers []*domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID,
			&t.UserEmail,
			&t.FromCardNumber,
			&t.ToCardNumber,
			&t.Amount,
			&t.CreatedAt,
		); err != nil {
			return nil, store.NewStoreError("transfer", "list", "failed to scan transfer", err)
		}
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("transfer", "list", "failed to iterate transfers", err)
	}
	return transfers, nil
}

// DeleteByUser implements store.TransferStore.DeleteByUser
func (s *PostgresTransferStore) DeleteByUser(ctx context.Context, email string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM card_transfers WHERE user_email = $1`, email)
	if err != nil {
		return 0, store.NewStoreError("transfer", "delete", "failed to delete user transfers", MapError(err))
	}
	return result.RowsAffected()
}

// WithTx implements store.TransferStore.WithTx
func (s *PostgresTransferStore) WithTx(tx *sql.Tx) store.TransferStore {
	return &PostgresTransferStore{db: tx, logger: s.logger}
}
