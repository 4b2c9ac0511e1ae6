// Package config loads server configuration from the environment, with a
// .env file as a convenience for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DBPath is the SQLite database file.
	DBPath string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// TokenDuration is how long issued tokens stay valid.
	TokenDuration time.Duration

	// DeletionWindow is how long a deletion request stays open for votes
	// before it lazily expires.
	DeletionWindow time.Duration

	// CORSOrigins is the comma-separated allowlist for browsers; "*"
	// allows any origin.
	CORSOrigins string
}

// Load reads configuration, applying defaults for everything except the
// JWT secret.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "./data/stakepact.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.TokenDuration, err = getDuration("TOKEN_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DeletionWindow, err = getDuration("DELETION_WINDOW", 72*time.Hour); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
