package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the process configuration, read from the environment.
// Redis and Postgres are optional; without them finished games are simply
// not archived.
type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	ArchiveTTL time.Duration `env:"ARCHIVE_TTL" envDefault:"24h"`

	// Extra yaml files overriding the embedded room-notice catalog.
	MessageTemplateDir string `env:"MESSAGE_TEMPLATE_DIR"`

	// Origin patterns accepted at the websocket handshake. Empty means
	// same-origin only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into an AppConfig.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = 24 * time.Hour
	}
	return cfg, nil
}
