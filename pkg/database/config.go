package database

import (
	"os"
	"time"
)

// Config holds persistence configuration. URL selects the Postgres path;
// otherwise the service runs on the embedded SQLite file at Path.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// URL is an optional Postgres DSN. When set it takes precedence over
	// Path.
	URL string

	// Connection pool settings (Postgres path).
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads database configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Path:            getEnvOrDefault("DATABASE_PATH", "./app.db"),
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
