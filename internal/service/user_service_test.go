package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc       UserService
	users     *fakeUserStore
	cards     *fakeCardStore
	transfers *fakeTransferStore
	tokens    *fakeTokenStore
	journal   *journal
}

func newUserFixture(t *testing.T, db *sql.DB) *userFixture {
	t.Helper()
	j := &journal{}
	users := newFakeUserStore(alice, bob)
	users.log = j
	cards := newFakeCardStore(activeCard(cardA, alice, "10"), activeCard(cardB, alice, "10"), activeCard(cardC, bob, "10"))
	cards.log = j
	transfers := &fakeTransferStore{log: j}
	tokens := &fakeTokenStore{rows: map[string]int64{alice.Email: 3, bob.Email: 1}, log: j}

	svc, err := NewUserService(db, users, cards, transfers, tokens, nil)
	require.NoError(t, err)
	return &userFixture{svc: svc, users: users, cards: cards, transfers: transfers, tokens: tokens, journal: j}
}

func TestNewUserService_NilDependencies(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	users, cards, transfers, tokens := newFakeUserStore(), newFakeCardStore(), &fakeTransferStore{}, &fakeTokenStore{}

	tests := map[string]func() (UserService, error){
		"db":        func() (UserService, error) { return NewUserService(nil, users, cards, transfers, tokens, nil) },
		"users":     func() (UserService, error) { return NewUserService(db, nil, cards, transfers, tokens, nil) },
		"cards":     func() (UserService, error) { return NewUserService(db, users, nil, transfers, tokens, nil) },
		"transfers": func() (UserService, error) { return NewUserService(db, users, cards, nil, tokens, nil) },
		"tokens":    func() (UserService, error) { return NewUserService(db, users, cards, transfers, nil, nil) },
	}
	for name, build := range tests {
		_, err := build()
		assert.ErrorIs(t, err, errNilDependency, name)
		assert.ErrorContains(t, err, name)
	}
}

func TestUserService_GetAndList(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	f := newUserFixture(t, db)
	ctx := context.Background()

	user, err := f.svc.Get(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = f.svc.Get(ctx, "ghost@example.com")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	users, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("cascades in dependency order", func(t *testing.T) {
		t.Parallel()
		db, sqlMock := newMockDB(t)
		f := newUserFixture(t, db)
		sqlMock.ExpectBegin()
		sqlMock.ExpectCommit()

		require.NoError(t, f.svc.Delete(context.Background(), alice.Email))

		assert.Equal(t, []string{"tokens", "transfers", "cards", "user"}, f.journal.list())
		mine, _ := f.cards.ListByOwner(context.Background(), alice.Email)
		assert.Empty(t, mine)
		others, _ := f.cards.ListByOwner(context.Background(), bob.Email)
		assert.Len(t, others, 1)
		exists, _ := f.users.ExistsByEmail(context.Background(), alice.Email)
		assert.False(t, exists)
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		t.Parallel()
		db, sqlMock := newMockDB(t)
		f := newUserFixture(t, db)
		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback()

		err := f.svc.Delete(context.Background(), "ghost@example.com")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

// mockTransferStore fails DeleteByUser on demand. Methods the user service
// does not call are left to the nil embedded interface.
type mockTransferStore struct {
	mock.Mock
	store.TransferStore
}

func (m *mockTransferStore) DeleteByUser(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransferStore) WithTx(*sql.Tx) store.TransferStore { return m }

func TestUserService_Delete_StoreFailure(t *testing.T) {
	t.Parallel()
	db, sqlMock := newMockDB(t)
	j := &journal{}
	users := newFakeUserStore(alice)
	users.log = j
	cards := newFakeCardStore(activeCard(cardA, alice, "10"))
	cards.log = j
	transfers := &mockTransferStore{}
	transfers.On("DeleteByUser", mock.Anything, alice.Email).
		Return(int64(0), errors.New("connection reset")).Once()

	svc, err := NewUserService(db, users, cards, transfers, &fakeTokenStore{log: j}, nil)
	require.NoError(t, err)
	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()

	err = svc.Delete(context.Background(), alice.Email)

	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Equal(t, []string{"tokens"}, j.list(), "later steps must not run")
	transfers.AssertExpectations(t)
}
