// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable of the server process.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	RedisURL    string // empty disables action history publishing

	WalletBaseURL string
	WalletPassKey string
	WalletTimeout time.Duration

	TurnTimeout time.Duration
	LogLevel    string
}

// Load reads the environment, after merging in a .env file if one exists.
// DATABASE_URL, WALLET_BASE_URL and WALLET_PASS_KEY are required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		WalletBaseURL: os.Getenv("WALLET_BASE_URL"),
		WalletPassKey: os.Getenv("WALLET_PASS_KEY"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.WalletTimeout, err = getDuration("WALLET_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TurnTimeout, err = getDuration("TURN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	for _, req := range []struct{ key, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"WALLET_BASE_URL", cfg.WalletBaseURL},
		{"WALLET_PASS_KEY", cfg.WalletPassKey},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", req.key)
		}
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
