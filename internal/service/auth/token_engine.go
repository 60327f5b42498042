package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/bankcards-api/internal/domain"
)

// TokenKind distinguishes access tokens from refresh tokens. It is carried
// in the "type" claim so one kind can never stand in for the other.
type TokenKind string

// Token kinds.
const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenEngine mints, parses and validates signed session tokens and keeps
// the token ledger that records their revocation state.
type TokenEngine interface {
	// Mint creates a signed token of the given kind for user. The subject is
	// the user's email.
	Mint(ctx context.Context, user *domain.User, kind TokenKind) (string, error)

	// Parse verifies the signature and expiry of token and returns its
	// claims. It does not consult the ledger, so revoked tokens still parse.
	// Fails with ErrTokenMalformed or ErrTokenExpired.
	Parse(ctx context.Context, token string) (*Claims, error)

	// IsValidAccess reports whether token is a live access token for user:
	// it parses, is an access token, names user as subject and has a
	// non-revoked ledger row. The error is non-nil only on ledger failures.
	IsValidAccess(ctx context.Context, token string, user *domain.User) (bool, error)

	// IsValidRefresh is IsValidAccess for the refresh-token column.
	IsValidRefresh(ctx context.Context, token string, user *domain.User) (bool, error)

	// RevokeAll marks every live ledger row of user as revoked. Idempotent.
	RevokeAll(ctx context.Context, user *domain.User) error

	// Persist appends a live ledger row for pair.
	Persist(ctx context.Context, pair domain.TokenPair, user *domain.User) error

	// ConsumeRefresh revokes the ledger row of a refresh token if it is
	// still live. Only one of several concurrent callers gets true.
	ConsumeRefresh(ctx context.Context, token string) (bool, error)

	// WithTx returns an engine whose ledger operations run in tx.
	WithTx(tx *sql.Tx) TokenEngine
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
