package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/store"
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email    string
	Name     string
	LastName string
	Password string
}

// AuthenticationService manages the session lifecycle of a user:
// registration, credential login, token rotation, logout, and resolution
// of a bearer credential into a principal.
type AuthenticationService interface {
	// Register creates a USER account. Fails with InvalidInput on bad fields
	// or a password outside the policy and with Conflict on a taken email.
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)

	// Authenticate checks credentials and issues a fresh token pair,
	// revoking every pair issued before.
	Authenticate(ctx context.Context, email, password string) (domain.TokenPair, error)

	// Refresh rotates the pair identified by the refresh token in the
	// Authorization header. A refresh token works exactly once.
	Refresh(ctx context.Context, authorizationHeader string) (domain.TokenPair, error)

	// Logout revokes all of the caller's tokens. Repeating it is harmless.
	Logout(ctx context.Context, authorizationHeader string) error

	// Authorize resolves a live access token into the caller's principal.
	Authorize(ctx context.Context, authorizationHeader string) (domain.Principal, error)
}

type authenticationServiceImpl struct {
	db       *sql.DB
	users    store.UserStore
	tokens   TokenEngine
	hasher   PasswordHasher
	verifier PasswordVerifier
	logger   *slog.Logger
}

var _ AuthenticationService = (*authenticationServiceImpl)(nil)

// NewAuthenticationService creates an AuthenticationService.
// It returns an error if any of the required dependencies are nil.
func NewAuthenticationService(
	db *sql.DB,
	users store.UserStore,
	tokens TokenEngine,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	logger *slog.Logger,
) (AuthenticationService, error) {
	switch {
	case db == nil:
		return nil, errors.New("db cannot be nil")
	case users == nil:
		return nil, errors.New("users cannot be nil")
	case tokens == nil:
		return nil, errors.New("tokens cannot be nil")
	case hasher == nil:
		return nil, errors.New("hasher cannot be nil")
	case verifier == nil:
		return nil, errors.New("verifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &authenticationServiceImpl{
		db:       db,
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "authentication_service")),
	}, nil
}

// Register implements AuthenticationService.Register
func (s *authenticationServiceImpl) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidate := &domain.User{
		Email:    strings.TrimSpace(input.Email),
		Name:     strings.TrimSpace(input.Name),
		LastName: strings.TrimSpace(input.LastName),
		Role:     domain.RoleUser,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, candidate.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		log.Debug("registration rejected: email taken")
		return nil, domain.Errorf(domain.ErrConflict, "user with this email already exists")
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := domain.NewUser(candidate.Email, candidate.Name, candidate.LastName, hash, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domain.NewError(domain.ErrConflict, "user with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered")
	return user, nil
}

// Authenticate implements AuthenticationService.Authenticate
func (s *authenticationServiceImpl) Authenticate(
	ctx context.Context,
	email, password string,
) (domain.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.TokenPair{}, domain.Errorf(domain.ErrNotFound, "user not found")
		}
		return domain.TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("authentication rejected: password mismatch")
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	var pair domain.TokenPair
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		issued, err := s.issue(ctx, s.tokens.WithTx(tx), user)
		pair = issued
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("user authenticated", slog.String("role", string(user.Role)))
	return pair, nil
}

// Refresh implements AuthenticationService.Refresh
func (s *authenticationServiceImpl) Refresh(
	ctx context.Context,
	authorizationHeader string,
) (domain.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	raw, user, err := s.resolve(ctx, authorizationHeader, RefreshToken)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.TokenPair{}, ErrTokenRejected
		}
		return domain.TokenPair{}, err
	}

	var pair domain.TokenPair
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		engine := s.tokens.WithTx(tx)

		valid, err := engine.IsValidRefresh(ctx, raw, user)
		if err != nil {
			return err
		}
		if !valid {
			return ErrTokenRejected
		}

		won, err := engine.ConsumeRefresh(ctx, raw)
		if err != nil {
			return err
		}
		if !won {
			log.Warn("refresh token already consumed by a concurrent rotation")
			return ErrTokenRejected
		}

		pair, err = s.issue(ctx, engine, user)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("token pair rotated")
	return pair, nil
}

// Logout implements AuthenticationService.Logout
func (s *authenticationServiceImpl) Logout(ctx context.Context, authorizationHeader string) error {
	raw, err := ExtractBearerToken(authorizationHeader)
	if err != nil {
		return err
	}
	claims, err := s.tokens.Parse(ctx, raw)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.Errorf(domain.ErrNotFound, "user not found")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.tokens.RevokeAll(ctx, user); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("user logged out")
	return nil
}

// Authorize implements AuthenticationService.Authorize
func (s *authenticationServiceImpl) Authorize(
	ctx context.Context,
	authorizationHeader string,
) (domain.Principal, error) {
	raw, user, err := s.resolve(ctx, authorizationHeader, AccessToken)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.Principal{}, ErrTokenRejected
		}
		return domain.Principal{}, err
	}

	valid, err := s.tokens.IsValidAccess(ctx, raw, user)
	if err != nil {
		return domain.Principal{}, err
	}
	if !valid {
		return domain.Principal{}, ErrTokenRejected
	}

	return domain.Principal{Email: user.Email, Role: user.Role}, nil
}

// resolve extracts the bearer token, parses it, checks its kind and loads
// the subject. Store not-found errors are passed through for the caller to
// classify.
func (s *authenticationServiceImpl) resolve(
	ctx context.Context,
	authorizationHeader string,
	kind TokenKind,
) (string, *domain.User, error) {
	raw, err := ExtractBearerToken(authorizationHeader)
	if err != nil {
		return "", nil, err
	}
	claims, err := s.tokens.Parse(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	if claims.Kind != kind {
		return "", nil, ErrTokenRejected
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if store.IsNotFoundError(err) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	return raw, user, nil
}

// issue mints a new pair, revokes every live pair of user and records the
// new one. Callers run it inside a transaction.
func (s *authenticationServiceImpl) issue(
	ctx context.Context,
	engine TokenEngine,
	user *domain.User,
) (domain.TokenPair, error) {
	access, err := engine.Mint(ctx, user, AccessToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := engine.Mint(ctx, user, RefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	pair := domain.TokenPair{AccessToken: access, RefreshToken: refresh}

	if err := engine.RevokeAll(ctx, user); err != nil {
		return domain.TokenPair{}, err
	}
	if err := engine.Persist(ctx, pair, user); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}
