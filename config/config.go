package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the service configuration, populated from the environment.
type Config struct {
	Addr         string        `env:"ADDR,default=:8000"`
	RedisURL     string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	AccessTTL    time.Duration `env:"ACCESS_TOKEN_TTL,default=24h"`
	ChallengeTTL time.Duration `env:"CHALLENGE_TTL,default=10m"`

	// DevMode swaps Redis for in-memory storage and disables event
	// publishing. Single instance only.
	DevMode bool `env:"DEV_MODE,default=false"`
}

// Load reads the configuration from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}
	return cfg, nil
}
