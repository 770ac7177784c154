// Package config loads application configuration from environment variables.
// All variables use the QUIZ_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Telegram    TelegramConfig
	WebSocket   WebSocketConfig
	Session     SessionConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables
// the Postgres event sink.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables the Redis event stream.
type CacheConfig struct {
	URL         string
	EventStream string
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	BotToken string
}

// WebSocketConfig holds browser chat settings.
type WebSocketConfig struct {
	Enabled        bool
	Path           string
	OriginPatterns []string
}

// SessionConfig holds in-memory quiz session settings.
type SessionConfig struct {
	IdleTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with QUIZ_ prefix.
func Load() (*Config, error) {
	idle, err := envDuration("QUIZ_SESSION_IDLE_TIMEOUT", 2*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QUIZ_SERVER_PORT", 8080),
			Host: envStr("QUIZ_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("QUIZ_DATABASE_URL", ""),
			MaxConns: envInt("QUIZ_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("QUIZ_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:         envStr("QUIZ_CACHE_URL", ""),
			EventStream: envStr("QUIZ_CACHE_EVENT_STREAM", "quiz:events"),
		},
		Telegram: TelegramConfig{
			BotToken: envStr("QUIZ_TELEGRAM_BOT_TOKEN", ""),
		},
		WebSocket: WebSocketConfig{
			Enabled:        envBool("QUIZ_WEBSOCKET_ENABLED", true),
			Path:           envStr("QUIZ_WEBSOCKET_PATH", "/ws"),
			OriginPatterns: envList("QUIZ_WEBSOCKET_ORIGINS"),
		},
		Session: SessionConfig{
			IdleTimeout: idle,
		},
		Log: LogConfig{
			Level:  envStr("QUIZ_LOG_LEVEL", "info"),
			Format: envStr("QUIZ_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("QUIZ_CATALOG_PATH", "./catalog"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasChannel() {
		return fmt.Errorf("QUIZ_TELEGRAM_BOT_TOKEN or QUIZ_WEBSOCKET_ENABLED is required")
	}

	if c.WebSocket.Enabled && !strings.HasPrefix(c.WebSocket.Path, "/") {
		return fmt.Errorf("QUIZ_WEBSOCKET_PATH must start with '/', got %q", c.WebSocket.Path)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("QUIZ_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("QUIZ_SESSION_IDLE_TIMEOUT must be positive, got %s", c.Session.IdleTimeout)
	}

	return nil
}

// HasChannel returns true if at least one chat channel is configured.
func (c *Config) HasChannel() bool {
	return c.Telegram.BotToken != "" || c.WebSocket.Enabled
}

// SlogLevel parses Level into a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("QUIZ_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
