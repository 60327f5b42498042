package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByEmail retrieves a user by email.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail reports whether a user with this email is stored.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns all users ordered by email.
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes the user row only. Dependent rows must be removed first.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, email string) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
