// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Store     StoreConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	OpenAI    OpenAIConfig
}

// ServerConfig holds HTTP server configuration. Empty CORSAllowOrigins
// means any origin is accepted, which suits a localhost tool.
type ServerConfig struct {
	Port             string   `envconfig:"PORT" default:"8000"`
	Host             string   `envconfig:"HOST" default:"0.0.0.0"`
	FrontendDist     string   `envconfig:"FRONTEND_DIST" default:""`
	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:""`
}

// TerminalConfig holds terminal-session configuration.
type TerminalConfig struct {
	HistoryMaxBytes int `envconfig:"HISTORY_MAX_BYTES" default:"2000000"`
}

// StoreConfig holds SQLite configuration.
type StoreConfig struct {
	Path     string `envconfig:"DB_PATH" default:"swefoundry.db"`
	PoolSize int    `envconfig:"DB_POOL_SIZE" default:"4"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// OpenAIConfig holds copilot upstream configuration. The copilot endpoint
// returns an actionable error when APIKey is empty.
type OpenAIConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
	BaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in defaults, ignoring the environment.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Terminal: TerminalConfig{HistoryMaxBytes: 2_000_000},
		Store:    StoreConfig{Path: "swefoundry.db", PoolSize: 4},
		Logging:  LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4.1-mini",
			BaseURL: "https://api.openai.com/v1",
		},
	}
}
