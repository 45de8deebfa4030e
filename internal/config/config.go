// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	Port string

	// Relational store; empty means file sources only.
	DatabaseURL string

	// Data locations
	DataDir         string
	OutputRoutesDir string
	ProvincesFile   string

	// HTTP
	AllowedOrigins []string
	RateRPS        float64
	RateBurst      int

	// Logging
	LogFile  string
	LogLevel slog.Level

	RedisURL     string
	WatchSources bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first; variables already set win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		DataDir:         getEnv("DATA_DIR", "./data"),
		OutputRoutesDir: strings.TrimSpace(os.Getenv("OUTPUT_ROUTES_DIR")),
		ProvincesFile:   strings.TrimSpace(os.Getenv("PROVINCES_FILE")),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateRPS:        getFloat("RATE_RPS", 0),
		RateBurst:      getInt("RATE_BURST", 20),

		LogFile:  os.Getenv("LOG_FILE"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),

		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		WatchSources: getEnv("WATCH_SOURCES", "false") == "true",
	}
}

// Driver names accepted by database/sql for the supported stores.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DatabaseDSN maps DATABASE_URL onto a database/sql driver and DSN. SQLAlchemy
// style URLs (postgresql+psycopg://) are accepted so one .env serves both the
// import tooling and this service.
func DatabaseDSN(url string) (driver, dsn string) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", ""
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://")
	case strings.HasPrefix(url, "file:"):
		return DriverSQLite, url
	}
	if scheme, rest, ok := strings.Cut(url, "://"); ok {
		if base, _, found := strings.Cut(scheme, "+"); found {
			scheme = base
		}
		if scheme == "postgresql" {
			scheme = "postgres"
		}
		url = scheme + "://" + rest
	}
	return DriverPostgres, url
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
