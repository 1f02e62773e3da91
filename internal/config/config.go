// Package config loads runtime settings from the environment, with an
// optional .env overlay for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// StoreDriver selects the persistence backend: sqlite, postgres or memory.
	StoreDriver string
	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string
	// PostgresURL is the connection string for the postgres driver.
	PostgresURL string
	// WebDir is the directory of deployed static assets; empty disables
	// asset serving.
	WebDir string
	// Scope is the path prefix the app is served under.
	Scope string
	// WorkerVersion is the cache worker's deployment version counter.
	WorkerVersion int
	// UpdateInterval is how often the page-side registration polls for a
	// newer worker.
	UpdateInterval time.Duration
}

// Load reads the environment, after overlaying a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:           getEnv("ADDR", ":8080"),
		StoreDriver:    getEnv("POS_DB", "sqlite"),
		SQLitePath:     getEnv("POS_DB_PATH", "vereinskasse.db"),
		PostgresURL:    getEnv("DATABASE_URL", ""),
		WebDir:         getEnv("WEB_DIR", ""),
		Scope:          getEnv("POS_SCOPE", "/vereinskasse/"),
		WorkerVersion:  getEnvInt("SW_VERSION", 3),
		UpdateInterval: getEnvDuration("SW_UPDATE_INTERVAL", 60*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
