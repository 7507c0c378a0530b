package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.App.ID)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Queue.FlushAt)
	assert.Equal(t, 5*time.Second, cfg.Queue.FlushInterval)
	assert.Equal(t, 10000, cfg.Queue.MaxSize)
	assert.False(t, cfg.Ingest.Enabled())
	assert.False(t, cfg.Sentry.Enabled())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("INSTRUMENT_APP_ID", "chat-v2")
	t.Setenv("INSTRUMENT_APP_ENV", "production")
	t.Setenv("INSTRUMENT_INGEST_HOST", "https://ingest.example.com")
	t.Setenv("INSTRUMENT_INGEST_API_KEY", "k")
	t.Setenv("INSTRUMENT_QUEUE_FLUSH_INTERVAL", "250ms")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "chat-v2", cfg.App.ID)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Ingest.Enabled())
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.FlushInterval)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
app:
  id: from-file
log:
  level: debug
  format: console
redis:
  enabled: true
  host: cache
  port: 6380
asynq:
  enabled: true
  queue: calls
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instrument.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.ID)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, "calls", cfg.Asynq.Queue)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("INSTRUMENT_LOG_LEVEL", "verbose")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Level")
	})

	t.Run("ingest host without key", func(t *testing.T) {
		t.Setenv("INSTRUMENT_INGEST_HOST", "https://ingest.example.com")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "APIKey")
	})

	t.Run("asynq without redis", func(t *testing.T) {
		t.Setenv("INSTRUMENT_ASYNQ_ENABLED", "true")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "asynq requires redis")
	})

	t.Run("queue smaller than flush threshold", func(t *testing.T) {
		t.Setenv("INSTRUMENT_QUEUE_MAX_SIZE", "5")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxSize")
	})
}
