package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// TokenStore defines the interface for the token ledger.
type TokenStore interface {
	// Create appends a ledger row and sets its generated ID.
	Create(ctx context.Context, token *domain.Token) error

	// FindByAccessToken returns the row holding this access token.
	// Returns ErrTokenNotFound if there is none.
	FindByAccessToken(ctx context.Context, accessToken string) (*domain.Token, error)

	// FindByRefreshToken returns the row holding this refresh token.
	// Returns ErrTokenNotFound if there is none.
	FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error)

	// FindActiveByOwner returns the non-revoked rows of email.
	FindActiveByOwner(ctx context.Context, email string) ([]*domain.Token, error)

	// RevokeAllByOwner flips revoked to true on every non-revoked row of
	// email and returns how many rows changed. Idempotent.
	RevokeAllByOwner(ctx context.Context, email string) (int64, error)

	// RevokeRefreshToken revokes the row holding refreshToken only if it is
	// still active. It returns true when this call performed the flip, which
	// makes it usable as a compare-and-set for single-use rotation.
	RevokeRefreshToken(ctx context.Context, refreshToken string) (bool, error)

	// DeleteByOwner physically removes the rows of email. Used only when the
	// user itself is deleted.
	DeleteByOwner(ctx context.Context, email string) (int64, error)

	// WithTx returns a new TokenStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TokenStore
}
