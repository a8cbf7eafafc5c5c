package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramToken string
	DatabaseDSN   string

	// Redis is optional; without it the cross-process media-group claim
	// falls back to the database guard alone.
	RedisAddr     string
	RedisPassword string

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string

	WorkerPoolSize int

	GatewayTimeout time.Duration
	// GatewayMaxAttempts bounds transient-failure retries; 0 retries
	// without bound.
	GatewayMaxAttempts int

	// FontPath is the default watermark font when a channel has none set.
	FontPath string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	config.DatabaseDSN = os.Getenv("DATABASE_DSN")
	if config.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}

	config.RedisAddr = os.Getenv("REDIS_ADDR")
	config.RedisPassword = os.Getenv("REDIS_PASSWORD")

	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	var err error
	config.WorkerPoolSize, err = intEnv("WORKER_POOL_SIZE", 4)
	if err != nil {
		return nil, err
	}

	timeoutSeconds, err := intEnv("GATEWAY_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	config.GatewayTimeout = time.Duration(timeoutSeconds) * time.Second

	config.GatewayMaxAttempts, err = intEnv("GATEWAY_MAX_ATTEMPTS", 0)
	if err != nil {
		return nil, err
	}

	config.FontPath = os.Getenv("FONT_PATH")
	if config.FontPath == "" {
		config.FontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}

	return config, nil
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
