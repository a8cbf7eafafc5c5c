package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_DSN", "dsn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, "dsn", cfg.DatabaseDSN)
	assert.False(t, cfg.WebhookMode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 0, cfg.GatewayMaxAttempts)
	assert.NotEmpty(t, cfg.FontPath)
}

func TestLoadFromEnv_RequiredFields(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_DSN", "dsn")
	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_DSN", "")
	_, err = LoadFromEnv()
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestLoadFromEnv_WebhookModeNeedsURL(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("WEBHOOK_MODE", "true")

	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "WEBHOOK_URL")

	t.Setenv("WEBHOOK_URL", "https://bot.example.com")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.WebhookMode)
	assert.Equal(t, "https://bot.example.com", cfg.WebhookURL)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_POOL_SIZE", "16")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "5")
	t.Setenv("GATEWAY_MAX_ATTEMPTS", "3")
	t.Setenv("FONT_PATH", "/fonts/custom.ttf")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 16, cfg.WorkerPoolSize)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 3, cfg.GatewayMaxAttempts)
	assert.Equal(t, "/fonts/custom.ttf", cfg.FontPath)
}

func TestLoadFromEnv_BadInt(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_DSN", "dsn")
	t.Setenv("WORKER_POOL_SIZE", "lots")

	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "WORKER_POOL_SIZE")
}
