package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration values read from the environment.
type Config struct {
	DatabaseURL       string
	ServerPort        string
	JWTSecret         string
	AllowedOrigins    []string
	LockTimeout       time.Duration
	LowStockThreshold int
	LogLevel          string
	LogFormat         string
	OTLPEndpoint      string
	MaxUploadBytes    int64
}

const (
	defaultServerPort        = "8080"
	defaultLockTimeout       = 3 * time.Second
	defaultLowStockThreshold = 10
	defaultMaxUploadBytes    = 10 << 20
)

// Load reads configuration from environment variables with reasonable defaults.
// Callers are expected to have run godotenv.Load() beforehand.
// Missing DATABASE_URL or JWT_SECRET is not an error here; Require* helpers check them
// for the binaries that need them.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ServerPort:        envOr("SERVER_PORT", defaultServerPort),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedOrigins:    splitAndTrim(os.Getenv("ALLOWED_ORIGINS")),
		LockTimeout:       defaultLockTimeout,
		LowStockThreshold: defaultLowStockThreshold,
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MaxUploadBytes:    defaultMaxUploadBytes,
	}

	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return Config{}, fmt.Errorf("invalid SERVER_PORT value %q", cfg.ServerPort)
	}

	if v := os.Getenv("LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid LOCK_TIMEOUT value %q", v)
		}
		cfg.LockTimeout = d
	}

	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid LOW_STOCK_THRESHOLD value %q", v)
		}
		cfg.LowStockThreshold = n
	}

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES value %q", v)
		}
		cfg.MaxUploadBytes = n
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT value %q (want json or console)", cfg.LogFormat)
	}

	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is not set.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// RequireJWTSecret returns an error when JWT_SECRET is not set.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
