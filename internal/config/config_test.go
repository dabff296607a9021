package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "LOCK_TIMEOUT", "LOW_STOCK_THRESHOLD", "LOG_LEVEL", "LOG_FORMAT", "ALLOWED_ORIGINS", "MAX_UPLOAD_BYTES"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.ServerPort)
	}
	if cfg.LockTimeout != 3*time.Second {
		t.Errorf("Expected lock timeout 3s, got %s", cfg.LockTimeout)
	}
	if cfg.LowStockThreshold != 10 {
		t.Errorf("Expected low stock threshold 10, got %d", cfg.LowStockThreshold)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("Expected no allowed origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.ServerPort)
	}
	if cfg.LockTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", cfg.LockTimeout)
	}
	if cfg.LowStockThreshold != 3 {
		t.Errorf("Expected 3, got %d", cfg.LowStockThreshold)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":         "http",
		"LOCK_TIMEOUT":        "soon",
		"LOW_STOCK_THRESHOLD": "-1",
		"LOG_FORMAT":          "xml",
		"MAX_UPLOAD_BYTES":    "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", key, val)
			}
		})
	}
}

func TestRequireHelpers(t *testing.T) {
	var cfg Config
	if cfg.RequireDatabase() == nil {
		t.Error("Expected error for empty DATABASE_URL")
	}
	if cfg.RequireJWTSecret() == nil {
		t.Error("Expected error for empty JWT_SECRET")
	}
	cfg.DatabaseURL = "postgres://localhost/test"
	cfg.JWTSecret = "s"
	if cfg.RequireDatabase() != nil || cfg.RequireJWTSecret() != nil {
		t.Error("Expected no error once values are set")
	}
}
