// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup
type Config struct {
	Environment string
	Port        string

	// Database
	DBDriver    string // "postgres" or "sqlite"
	DatabaseURL string

	// Auth
	JWTSecret []byte
	TokenTTL  time.Duration

	// Redis (optional - unread count cache and distributed rate limiting)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Logging
	LogLevel string
	LogFile  string

	// Tracing
	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	CORSOrigins    []string
	UnreadCacheTTL time.Duration

	// Per-connection websocket frame limits
	RelayRateLimit int
	RelayRateBurst int
}

// Load reads .env (if present) and then the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	envLoaded := godotenv.Load() == nil
	driver, dsn := DatabaseFromEnv()

	cfg := &Config{
		Environment:      getEnvOrDefault("ENVIRONMENT", "development"),
		Port:             getEnvOrDefault("PORT", "8787"),
		DBDriver:         driver,
		DatabaseURL:      dsn,
		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:         getDurationOrDefault("TOKEN_TTL", 7*24*time.Hour),
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("LOG_FILE", "server.log"),
		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelSamplingRate: getFloatOrDefault("OTEL_SAMPLING_RATE", 1.0),
		CORSOrigins:      splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
		UnreadCacheTTL:   getDurationOrDefault("UNREAD_CACHE_TTL", 30*time.Second),
		RelayRateLimit:   getIntOrDefault("RELAY_RATE_LIMIT", 10),
		RelayRateBurst:   getIntOrDefault("RELAY_RATE_BURST", 20),
	}

	if len(cfg.JWTSecret) == 0 {
		hint := ""
		if !envLoaded {
			hint = " (no .env file found)"
		}
		return nil, fmt.Errorf("JWT_SECRET environment variable is required%s", hint)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

// DatabaseFromEnv returns the database driver and DSN from DB_DRIVER,
// DATABASE_URL and the DB_* fallbacks. Tools that don't need the rest of
// Config (the seeder) use it directly.
func DatabaseFromEnv() (driver, dsn string) {
	driver = strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres"))
	dsn = os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = defaultDatabaseURL(driver)
	}
	return driver, dsn
}

// RedisEnabled reports whether a Redis host was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func defaultDatabaseURL(driver string) string {
	if driver == "sqlite" {
		return getEnvOrDefault("DB_PATH", "huddle.db")
	}
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "huddle")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
