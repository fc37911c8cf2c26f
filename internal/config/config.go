package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries process-wide settings. It is loaded once at startup and
// passed by reference into constructors; nothing reads the environment after
// Load returns.
type Config struct {
	Addr        string `env:"USERDESK_ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"USERDESK_PG_DSN"`

	TokenSecret string        `env:"USERDESK_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"USERDESK_TOKEN_TTL" envDefault:"168h"`
	TokenIssuer string        `env:"USERDESK_TOKEN_ISSUER" envDefault:"userdesk"`

	AllowedOrigins []string `env:"USERDESK_CORS_ORIGINS" envSeparator:","`

	RateBurst     int   `env:"USERDESK_RATE_BURST" envDefault:"100"`
	RatePerSecond int   `env:"USERDESK_RATE_PER_SECOND" envDefault:"10"`
	MaxBodyBytes  int64 `env:"USERDESK_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("config: USERDESK_TOKEN_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token TTL must be positive")
	}
	if c.RateBurst <= 0 || c.RatePerSecond <= 0 {
		return errors.New("config: rate limit values must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: max body bytes must be positive")
	}
	return nil
}
