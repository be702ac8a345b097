package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration

	Auth  AuthConfig
	DB    DatabaseConfig
	Redis RedisConfig
	CORS  CORSConfig
}

// AuthConfig contains the secrets used to authenticate portal and internal callers.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	InternalAPIKey string
}

// DatabaseConfig contains connection parameters for PostgreSQL or SQLite.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	StatusCacheTTL time.Duration
}

// CORSConfig lists the origins allowed to call the management API from a browser.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")

	// Auth
	cfg.Auth = AuthConfig{
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", ""),
		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),
	}

	// Database
	cfg.DB = DatabaseConfig{
		Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:       getEnv("DB_HOST", ""),
		Port:       getEnv("DB_PORT", "5432"),
		User:       getEnv("DB_USER", ""),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", ""),
		SSLMode:    getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "gateway.db"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", true),
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// CORS
	cfg.CORS = CORSConfig{AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))}

	// Durations
	var err error
	if cfg.Redis.StatusCacheTTL, err = parseDurationEnv("STATUS_CACHE_TTL", "5s"); err != nil {
		return nil, fmt.Errorf("invalid STATUS_CACHE_TTL: %w", err)
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	// redis treats a zero expiry as "keep forever"
	if cfg.Redis.StatusCacheTTL == 0 {
		return nil, errors.New("invalid STATUS_CACHE_TTL: must be greater than 0")
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	switch cfg.DB.Driver {
	case DriverPostgres:
		// Basic validation for DB parameters — keeps messages concise and helpful.
		if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
			return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	case DriverSQLite:
		if cfg.DB.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH must be set when DB_DRIVER=sqlite")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q: use postgres or sqlite", cfg.DB.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}
	if cfg.Auth.InternalAPIKey == "" {
		return nil, errors.New("INTERNAL_API_KEY must be set for internal endpoints")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
