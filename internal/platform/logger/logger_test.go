package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"fatal", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := logger.ParseLevel(tt.name)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	buf := &logger.TestLogBuffer{}
	l := logger.New(buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "card", "**** **** **** 1234")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "**** **** **** 1234", entries[0]["card"])
}

func TestNew_InvalidLevelWarns(t *testing.T) {
	buf := &logger.TestLogBuffer{}
	l := logger.New(buf, "loud")

	l.Debug("hidden")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "loud", entries[0]["configured_level"])
}

func TestFromContext(t *testing.T) {
	l, _ := logger.NewTestLogger()
	fallback, _ := logger.NewTestLogger()

	ctx := logger.WithLogger(context.Background(), l)

	assert.Same(t, l, logger.FromContext(ctx))
	assert.Same(t, l, logger.FromContextOrDefault(ctx, fallback))
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
	assert.Same(t, slog.Default(), logger.FromContextOrDefault(context.Background(), nil))
}
