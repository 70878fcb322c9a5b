package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Database pool
	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"5"`

	// Collaborating services
	OrderServiceURL   string        `env:"ORDER_SERVICE_URL" envDefault:"http://gestion-comanda:8000"`
	BookingServiceURL string        `env:"BOOKING_SERVICE_URL" envDefault:"http://gestion-reservas:8000"`
	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`

	// Idempotency keys (disabled when REDIS_ADDR is empty)
	RedisAddr      string        `env:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Telegram alerts
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID        int64  `env:"ALERT_CHAT_ID"`
	AlertTopicError    int    `env:"ALERT_TOPIC_ERROR"`
	AlertTopicSettled  int    `env:"ALERT_TOPIC_SETTLED"`
	AlertTopicAnnulled int    `env:"ALERT_TOPIC_ANNULLED"`
	AlertTopicMirror   int    `env:"ALERT_TOPIC_MIRROR_FAILURE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("parse config: DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.GatewayTimeout <= 0 {
		return nil, fmt.Errorf("parse config: GATEWAY_TIMEOUT must be positive")
	}
	return cfg, nil
}

// AlertsEnabled reports whether Telegram alerting is configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.AlertChatID != 0
}

// IdempotencyEnabled reports whether idempotency keys are backed by Redis.
func (c *Config) IdempotencyEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
