package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/redact"
	"github.com/phrazzld/bankcards-api/internal/store"
)

const tokenColumns = `id, user_email, access_token, refresh_token, revoked`

// PostgresTokenStore implements store.TokenStore, the token ledger, on PostgreSQL.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a token ledger backed by db.
// If logger is nil, a default logger will be used.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Create implements store.TokenStore.Create
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.Token) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tokens (user_email, access_token, refresh_token, revoked)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		token.UserEmail,
		token.AccessToken,
		token.RefreshToken,
		token.Revoked,
	).Scan(&token.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to persist token pair",
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("token", "create", "failed to insert token pair", MapError(err))
	}
	return nil
}

// FindByAccessToken implements store.TokenStore.FindByAccessToken
func (s *PostgresTokenStore) FindByAccessToken(ctx context.Context, accessToken string) (*domain.Token, error) {
	return s.find(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE access_token = $1`, accessToken)
}

// FindByRefreshToken implements store.TokenStore.FindByRefreshToken
func (s *PostgresTokenStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error) {
	return s.find(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE refresh_token = $1`, refreshToken)
}

func (s *PostgresTokenStore) find(ctx context.Context, query, value string) (*domain.Token, error) {
	token, err := scanToken(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to look up token",
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("token", "get", "failed to query token", MapError(err))
	}
	return token, nil
}

// FindActiveByOwner implements store.TokenStore.FindActiveByOwner
func (s *PostgresTokenStore) FindActiveByOwner(ctx context.Context, email string) ([]*domain.Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens
		WHERE user_email = $1 AND revoked = FALSE
		ORDER BY id`, email)
	if err != nil {
		return nil, store.NewStoreError("token", "list", "failed to query tokens", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tokens []*domain.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, store.NewStoreError("token", "list", "failed to scan token", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("token", "list", "failed to iterate tokens", err)
	}
	return tokens, nil
}

// RevokeAllByOwner implements store.TokenStore.RevokeAllByOwner
func (s *PostgresTokenStore) RevokeAllByOwner(ctx context.Context, email string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tokens SET revoked = TRUE WHERE user_email = $1 AND revoked = FALSE`, email)
	if err != nil {
		return 0, store.NewStoreError("token", "revoke", "failed to revoke tokens", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("token", "revoke", "failed to read rows affected", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("tokens revoked", slog.Int64("count", n))
	return n, nil
}

// RevokeRefreshToken implements store.TokenStore.RevokeRefreshToken.
// It reports true only for the caller that flipped the row from live to
// revoked, so concurrent rotations of one refresh token have a single winner.
func (s *PostgresTokenStore) RevokeRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tokens SET revoked = TRUE WHERE refresh_token = $1 AND revoked = FALSE`, refreshToken)
	if err != nil {
		return false, store.NewStoreError("token", "revoke", "failed to revoke refresh token", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("token", "revoke", "failed to read rows affected", err)
	}
	return n == 1, nil
}

// DeleteByOwner implements store.TokenStore.DeleteByOwner
func (s *PostgresTokenStore) DeleteByOwner(ctx context.Context, email string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_email = $1`, email)
	if err != nil {
		return 0, store.NewStoreError("token", "delete", "failed to delete tokens", MapError(err))
	}
	return result.RowsAffected()
}

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{db: tx, logger: s.logger}
}

func scanToken(row rowScanner) (*domain.Token, error) {
	var t domain.Token
	if err := row.Scan(&t.ID, &t.UserEmail, &t.AccessToken, &t.RefreshToken, &t.Revoked); err != nil {
		return nil, err
	}
	return &t, nil
}
