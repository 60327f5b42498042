package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// today is the frozen clock used by service tests.
var today = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

// journal records store calls across fakes so tests can assert ordering.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// fakeCardStore is a map-backed store.CardStore. Reads return copies so
// that only Update changes stored state.
type fakeCardStore struct {
	mu      sync.Mutex
	cards   map[string]*domain.Card
	locked  []string
	updates int
	asOf    time.Time
	log     *journal
	err     error
}

func newFakeCardStore(cards ...*domain.Card) *fakeCardStore {
	s := &fakeCardStore{cards: map[string]*domain.Card{}}
	for _, c := range cards {
		cp := *c
		s.cards[c.Number] = &cp
	}
	return s
}

func (s *fakeCardStore) Create(_ context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.Number]; ok {
		return store.ErrCardExists
	}
	cp := *card
	s.cards[card.Number] = &cp
	return nil
}

func (s *fakeCardStore) GetByNumber(_ context.Context, number string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.cards[number]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCardStore) GetByNumberForUpdate(ctx context.Context, number string) (*domain.Card, error) {
	s.mu.Lock()
	s.locked = append(s.locked, number)
	s.mu.Unlock()
	return s.GetByNumber(ctx, number)
}

func (s *fakeCardStore) ExistsByNumber(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cards[number]
	return ok, nil
}

func (s *fakeCardStore) ListByOwner(_ context.Context, email string) ([]*domain.Card, error) {
	return s.filter(func(c *domain.Card) bool { return c.OwnerEmail == email }), nil
}

func (s *fakeCardStore) List(context.Context) ([]*domain.Card, error) {
	return s.filter(func(*domain.Card) bool { return true }), nil
}

func (s *fakeCardStore) filter(keep func(*domain.Card) bool) []*domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Card
	for _, c := range s.cards {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *fakeCardStore) Update(_ context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.Number]; !ok {
		return store.ErrCardNotFound
	}
	if card.Balance.IsNegative() {
		return store.ErrInvalidEntity
	}
	cp := *card
	s.cards[card.Number] = &cp
	s.updates++
	return nil
}

func (s *fakeCardStore) Delete(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[number]; !ok {
		return store.ErrCardNotFound
	}
	delete(s.cards, number)
	return nil
}

func (s *fakeCardStore) DeleteByOwner(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.add("cards")
	var n int64
	for number, c := range s.cards {
		if c.OwnerEmail == email {
			delete(s.cards, number)
			n++
		}
	}
	return n, nil
}

func (s *fakeCardStore) ExpireDue(_ context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asOf = asOf
	var n int64
	for _, c := range s.cards {
		if c.RefreshStatus(asOf) {
			n++
		}
	}
	return n, nil
}

func (s *fakeCardStore) WithTx(*sql.Tx) store.CardStore { return s }

func (s *fakeCardStore) card(number string) *domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.cards[number]
	return &cp
}

// fakeTransferStore is an append-only in-memory ledger.
type fakeTransferStore struct {
	mu        sync.Mutex
	transfers []*domain.Transfer
	log       *journal
	err       error
}

func (s *fakeTransferStore) Create(_ context.Context, transfer *domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	transfer.ID = int64(len(s.transfers) + 1)
	cp := *transfer
	s.transfers = append(s.transfers, &cp)
	return nil
}

func (s *fakeTransferStore) List(context.Context) ([]*domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Transfer, 0, len(s.transfers))
	for i := len(s.transfers) - 1; i >= 0; i-- {
		out = append(out, s.transfers[i])
	}
	return out, nil
}

func (s *fakeTransferStore) ListByUser(ctx context.Context, email string) ([]*domain.Transfer, error) {
	all, _ := s.List(ctx)
	var out []*domain.Transfer
	for _, t := range all {
		if t.UserEmail == email {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTransferStore) DeleteByUser(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.add("transfers")
	kept := s.transfers[:0]
	var n int64
	for _, t := range s.transfers {
		if t.UserEmail == email {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.transfers = kept
	return n, nil
}

func (s *fakeTransferStore) WithTx(*sql.Tx) store.TransferStore { return s }

func (s *fakeTransferStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

// fakeUserStore is a map-backed store.UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
	log   *journal
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
	if _, ok := s.users[user.Email]; ok {
		return store.ErrEmailExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok, nil
}

func (s *fakeUserStore) List(context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *fakeUserStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.add("user")
	if _, ok := s.users[email]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, email)
	return nil
}

func (s *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// fakeTokenStore only tracks deletions; the token ledger is exercised in
// the auth package.
type fakeTokenStore struct {
	store.TokenStore
	rows map[string]int64
	log  *journal
}

func (s *fakeTokenStore) DeleteByOwner(_ context.Context, email string) (int64, error) {
	s.log.add("tokens")
	n := s.rows[email]
	delete(s.rows, email)
	return n, nil
}

func (s *fakeTokenStore) WithTx(*sql.Tx) store.TokenStore { return s }

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

var (
	alice = &domain.User{Email: "alice@example.com", Name: "Alice", LastName: "Smith", HashedPassword: "h", Role: domain.RoleUser}
	bob   = &domain.User{Email: "bob@example.com", Name: "Bob", LastName: "Jones", HashedPassword: "h", Role: domain.RoleUser}

	alicePrincipal = domain.Principal{Email: alice.Email, Role: domain.RoleUser}
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// activeCard returns an ACTIVE card for owner that expires a year from today.
func activeCard(number string, owner *domain.User, balance string) *domain.Card {
	return &domain.Card{
		Number:         number,
		OwnerEmail:     owner.Email,
		OwnerName:      owner.FullName(),
		ExpirationDate: domain.Today(today).AddDate(1, 0, 0),
		Status:         domain.CardStatusActive,
		Balance:        money(balance),
	}
}

// staleCard returns a card whose stored status is still ACTIVE although it
// expired yesterday.
func staleCard(number string, owner *domain.User, balance string) *domain.Card {
	c := activeCard(number, owner, balance)
	c.ExpirationDate = domain.Today(today).AddDate(0, 0, -1)
	return c
}
