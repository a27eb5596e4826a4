// Package config reads service configuration from the environment.
// A .env file is honored when present (development); real environment
// variables always win.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort    int
	DBPath      string
	LogLevel    string
	Environment string
	SeedOnStart bool
}

// Load reads configuration from environment variables with defaults
// suitable for local development.
func Load() Config {
	// Missing .env is fine; env vars may be set by the runtime.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:    8080,
		DBPath:      "pharmatrack.db",
		LogLevel:    "info",
		Environment: "development",
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = port
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("SEED_ON_START"); v != "" {
		cfg.SeedOnStart, _ = strconv.ParseBool(v)
	}

	return cfg
}
