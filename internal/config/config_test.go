package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv убирает переменные на время теста, t.Setenv восстановит их после
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestParse_Defaults(t *testing.T) {
	unsetenv(t, "ENV", "DB_DSN", "DB_MIGRATE", "TIMEZONE", "COMPLETION_INTERVAL", "NOTIFY_QUEUE_SIZE")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.CompletionInterval)
	assert.Equal(t, 100, cfg.NotifyQueueSize)
	assert.True(t, cfg.Migrate)
	assert.False(t, cfg.UsesDatabase())
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DB_DSN", "postgres://localhost/tutor")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("COMPLETION_INTERVAL", "30s")
	t.Setenv("NOTIFY_QUEUE_SIZE", "8")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.UsesDatabase())
	assert.False(t, cfg.Migrate)
	assert.Equal(t, 30*time.Second, cfg.CompletionInterval)
	assert.Equal(t, 8, cfg.NotifyQueueSize)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad duration", key: "COMPLETION_INTERVAL", value: "soon"},
		{name: "zero interval", key: "COMPLETION_INTERVAL", value: "0s"},
		{name: "empty queue", key: "NOTIFY_QUEUE_SIZE", value: "0"},
		{name: "unknown timezone", key: "TIMEZONE", value: "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
