package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2_000_000, cfg.Terminal.HistoryMaxBytes)
	assert.Equal(t, "swefoundry.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HISTORY_MAX_BYTES", "500000")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("OPENAI_MODEL", "gpt-4.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 500_000, cfg.Terminal.HistoryMaxBytes)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.Model)
}

func TestLoadDefaultsWithoutEnvironment(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotZero(t, cfg.Terminal.HistoryMaxBytes)
	assert.NotEmpty(t, cfg.OpenAI.BaseURL)
}
