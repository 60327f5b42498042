package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// CardStore defines the interface for card data persistence.
type CardStore interface {
	// Create saves a new card.
	// Returns ErrCardExists if the number is already taken.
	Create(ctx context.Context, card *domain.Card) error

	// GetByNumber retrieves a card by number.
	// Returns ErrCardNotFound if the card does not exist.
	GetByNumber(ctx context.Context, number string) (*domain.Card, error)

	// GetByNumberForUpdate retrieves a card and takes a row lock held until
	// the surrounding transaction ends. Only meaningful on a WithTx store.
	// Returns ErrCardNotFound if the card does not exist.
	GetByNumberForUpdate(ctx context.Context, number string) (*domain.Card, error)

	// ExistsByNumber reports whether a card with this number is stored.
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// ListByOwner returns the cards owned by email ordered by number.
	ListByOwner(ctx context.Context, email string) ([]*domain.Card, error)

	// List returns every card ordered by number.
	List(ctx context.Context) ([]*domain.Card, error)

	// Update writes the mutable fields of card: owner name, status, balance
	// and the block-requested flag.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// Delete removes a card by number.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, number string) error

	// DeleteByOwner removes all cards of email and returns how many were removed.
	DeleteByOwner(ctx context.Context, email string) (int64, error)

	// ExpireDue marks every card whose expiration date is before asOf and
	// whose status is not yet EXPIRED as EXPIRED. Returns the number changed.
	ExpireDue(ctx context.Context, asOf time.Time) (int64, error)

	// WithTx returns a new CardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CardStore
}
