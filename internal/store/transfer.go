package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// TransferStore defines the interface for the append-only transfer ledger.
type TransferStore interface {
	// Create appends a transfer and sets its generated ID.
	Create(ctx context.Context, transfer *domain.Transfer) error

	// List returns all transfers, newest first.
	List(ctx context.Context) ([]*domain.Transfer, error)

	// ListByUser returns the transfers made by email, newest first.
	ListByUser(ctx context.Context, email string) ([]*domain.Transfer, error)

	// DeleteByUser removes the transfers made by email. Used only when the
	// user itself is deleted.
	DeleteByUser(ctx context.Context, email string) (int64, error)

	// WithTx returns a new TransferStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TransferStore
}
