package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore is a map-backed store.UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	creates int
	err     error
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*domain.User{}}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[user.Email]; ok {
		return store.ErrEmailExists
	}
	s.creates++
	s.users[user.Email] = user
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok, s.err
}

func (s *fakeUserStore) List(context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeUserStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, email)
	return nil
}

func (s *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// fakeTokenStore is an in-memory token ledger with the same uniqueness and
// compare-and-set semantics as the tokens table.
type fakeTokenStore struct {
	mu      sync.Mutex
	rows    []*domain.Token
	txBound bool
	err     error
}

func (s *fakeTokenStore) Create(_ context.Context, token *domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, r := range s.rows {
		if r.AccessToken == token.AccessToken || r.RefreshToken == token.RefreshToken {
			return store.ErrDuplicate
		}
	}
	token.ID = int64(len(s.rows) + 1)
	cp := *token
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *fakeTokenStore) find(match func(*domain.Token) bool) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrTokenNotFound
}

func (s *fakeTokenStore) FindByAccessToken(_ context.Context, token string) (*domain.Token, error) {
	return s.find(func(r *domain.Token) bool { return r.AccessToken == token })
}

func (s *fakeTokenStore) FindByRefreshToken(_ context.Context, token string) (*domain.Token, error) {
	return s.find(func(r *domain.Token) bool { return r.RefreshToken == token })
}

func (s *fakeTokenStore) FindActiveByOwner(_ context.Context, email string) ([]*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Token
	for _, r := range s.rows {
		if r.UserEmail == email && !r.Revoked {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeTokenStore) RevokeAllByOwner(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, r := range s.rows {
		if r.UserEmail == email && !r.Revoked {
			r.Revoked = true
			n++
		}
	}
	return n, nil
}

func (s *fakeTokenStore) RevokeRefreshToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.RefreshToken == token && !r.Revoked {
			r.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTokenStore) DeleteByOwner(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	var n int64
	for _, r := range s.rows {
		if r.UserEmail == email {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return n, nil
}

func (s *fakeTokenStore) WithTx(*sql.Tx) store.TokenStore {
	s.mu.Lock()
	s.txBound = true
	s.mu.Unlock()
	return s
}

func (s *fakeTokenStore) activeCount(email string) int {
	active, _ := s.FindActiveByOwner(context.Background(), email)
	return len(active)
}

var errLedgerDown = errors.New("ledger unavailable")

// newMockDB returns a sqlmock-backed *sql.DB for services that open
// transactions; the fakes ignore the tx itself.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}
