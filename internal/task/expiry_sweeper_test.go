package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireDue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// countingExpirer counts scheduled invocations.
type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ExpireDue(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestNewExpirySweeper(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "descriptor", schedule: "@daily"},
		{name: "interval", schedule: "@every 1h"},
		{name: "five fields", schedule: "15 3 * * *"},
		{name: "garbage", schedule: "whenever", wantErr: true},
		{name: "six fields", schedule: "0 15 3 * * *", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewExpirySweeper(tt.schedule, &countingExpirer{}, nil)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid expiry sweep schedule")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}

	t.Run("nil expirer", func(t *testing.T) {
		_, err := NewExpirySweeper("@daily", nil, nil)
		assert.Error(t, err)
	})
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	t.Parallel()

	t.Run("reports count", func(t *testing.T) {
		t.Parallel()
		expirer := &mockExpirer{}
		expirer.On("ExpireDue", mock.Anything).Return(int64(3), nil).Once()
		log, buf := logger.NewTestLogger()
		s, err := NewExpirySweeper("@daily", expirer, log)
		require.NoError(t, err)

		n, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Contains(t, buf.String(), `"expired":3`)
		expirer.AssertExpectations(t)
	})

	t.Run("propagates failure", func(t *testing.T) {
		t.Parallel()
		expirer := &mockExpirer{}
		expirer.On("ExpireDue", mock.Anything).Return(int64(0), errors.New("db down")).Once()
		s, err := NewExpirySweeper("@daily", expirer, nil)
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())
		assert.ErrorContains(t, err, "db down")
		expirer.AssertExpectations(t)
	})
}

func TestExpirySweeper_StartStop(t *testing.T) {
	t.Parallel()
	expirer := &countingExpirer{}
	s, err := NewExpirySweeper("@every 1s", expirer, nil)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return expirer.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := expirer.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, expirer.calls.Load(), "no sweeps after stop")
}
