package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/bankcards-api/internal/config"
	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/store"
)

// MinSecretLength is the shortest HMAC secret the engine accepts.
const MinSecretLength = 32

// hmacTokenEngine implements TokenEngine with HMAC-SHA256 signed JWTs and a
// TokenStore ledger.
type hmacTokenEngine struct {
	signingKey           []byte
	tokenLifetime        time.Duration    // Access token lifetime
	refreshTokenLifetime time.Duration    // Refresh token lifetime
	clockSkew            time.Duration    // Leeway for iat/exp checks
	timeFunc             func() time.Time // Injectable for testing
	ledger               store.TokenStore
	logger               *slog.Logger
}

// tokenClaims is the JWT payload.
type tokenClaims struct {
	TokenType TokenKind `json:"type"`
	jwt.RegisteredClaims
}

var _ TokenEngine = (*hmacTokenEngine)(nil)

// NewTokenEngine creates a token engine signing with cfg.JWTSecret and
// recording issued pairs in ledger.
func NewTokenEngine(
	cfg config.AuthConfig,
	ledger store.TokenStore,
	logger *slog.Logger,
) (TokenEngine, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if cfg.TokenLifetimeMinutes <= 0 || cfg.RefreshTokenLifetimeMinutes <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if ledger == nil {
		return nil, fmt.Errorf("token ledger cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &hmacTokenEngine{
		signingKey:           []byte(cfg.JWTSecret),
		tokenLifetime:        time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		refreshTokenLifetime: time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute,
		clockSkew:            time.Duration(cfg.ClockSkewSeconds) * time.Second,
		timeFunc:             time.Now,
		ledger:               ledger,
		logger:               logger.With(slog.String("component", "token_engine")),
	}, nil
}

// Mint implements TokenEngine.Mint
func (e *hmacTokenEngine) Mint(ctx context.Context, user *domain.User, kind TokenKind) (string, error) {
	lifetime := e.tokenLifetime
	switch kind {
	case AccessToken:
	case RefreshToken:
		lifetime = e.refreshTokenLifetime
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := e.timeFunc()
	claims := tokenClaims{
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.signingKey)
	if err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Error("failed to sign token",
			slog.String("error", err.Error()),
			slog.String("token_type", string(kind)))
		return "", fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", kind, err)
	}
	return signed, nil
}

// Parse implements TokenEngine.Parse
func (e *hmacTokenEngine) Parse(ctx context.Context, token string) (*Claims, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)
	now := e.timeFunc()

	parsed, err := jwt.ParseWithClaims(
		token,
		&tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return e.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(e.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token rejected: expired")
			return nil, ErrTokenExpired
		}
		log.Debug("token rejected: malformed",
			slog.String("error_type", fmt.Sprintf("%T", err)))
		return nil, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		log.Debug("token rejected: incomplete claims")
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != AccessToken && claims.TokenType != RefreshToken {
		log.Debug("token rejected: unknown token type",
			slog.String("token_type", string(claims.TokenType)))
		return nil, ErrTokenMalformed
	}

	return &Claims{
		Subject:   claims.Subject,
		Kind:      claims.TokenType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}

// IsValidAccess implements TokenEngine.IsValidAccess
func (e *hmacTokenEngine) IsValidAccess(ctx context.Context, token string, user *domain.User) (bool, error) {
	return e.isValid(ctx, token, user, AccessToken, e.ledger.FindByAccessToken)
}

// IsValidRefresh implements TokenEngine.IsValidRefresh
func (e *hmacTokenEngine) IsValidRefresh(ctx context.Context, token string, user *domain.User) (bool, error) {
	return e.isValid(ctx, token, user, RefreshToken, e.ledger.FindByRefreshToken)
}

func (e *hmacTokenEngine) isValid(
	ctx context.Context,
	token string,
	user *domain.User,
	kind TokenKind,
	lookup func(context.Context, string) (*domain.Token, error),
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("token_type", string(kind)))

	claims, err := e.Parse(ctx, token)
	if err != nil {
		return false, nil
	}
	if claims.Kind != kind {
		log.Debug("token rejected: wrong token type", slog.String("actual", string(claims.Kind)))
		return false, nil
	}
	if user == nil || claims.Subject != user.Email {
		log.Debug("token rejected: subject mismatch")
		return false, nil
	}

	row, err := lookup(ctx, token)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("token rejected: not in ledger")
			return false, nil
		}
		return false, fmt.Errorf("failed to look up token: %w", err)
	}
	if row.Revoked || row.UserEmail != user.Email {
		log.Debug("token rejected: revoked", slog.Int64("token_id", row.ID))
		return false, nil
	}
	return true, nil
}

// RevokeAll implements TokenEngine.RevokeAll
func (e *hmacTokenEngine) RevokeAll(ctx context.Context, user *domain.User) error {
	n, err := e.ledger.RevokeAllByOwner(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	logger.FromContextOrDefault(ctx, e.logger).Debug("revoked live tokens", slog.Int64("count", n))
	return nil
}

// Persist implements TokenEngine.Persist
func (e *hmacTokenEngine) Persist(ctx context.Context, pair domain.TokenPair, user *domain.User) error {
	row := &domain.Token{
		UserEmail:    user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if err := e.ledger.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to persist token pair: %w", err)
	}
	return nil
}

// ConsumeRefresh implements TokenEngine.ConsumeRefresh
func (e *hmacTokenEngine) ConsumeRefresh(ctx context.Context, token string) (bool, error) {
	won, err := e.ledger.RevokeRefreshToken(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return won, nil
}

// WithTx implements TokenEngine.WithTx
func (e *hmacTokenEngine) WithTx(tx *sql.Tx) TokenEngine {
	clone := *e
	clone.ledger = e.ledger.WithTx(tx)
	return &clone
}
