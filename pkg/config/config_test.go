package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BAGS_API_URL", "https://bags.example/api/v1")
	t.Setenv("JWT_EXPIRATION", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BagsAPIURL != "https://bags.example/api/v1" {
		t.Errorf("BagsAPIURL = %q; want %q", cfg.BagsAPIURL, "https://bags.example/api/v1")
	}
	if cfg.JWTExpiration != 48*time.Hour {
		t.Errorf("JWTExpiration = %v; want 48h", cfg.JWTExpiration)
	}
	if cfg.CookieName != "bagshub_token" {
		t.Errorf("CookieName = %q; want default", cfg.CookieName)
	}
	if cfg.MetricsPort != 8082 {
		t.Errorf("MetricsPort = %d; want default 8082", cfg.MetricsPort)
	}
}

func TestLoad_MetricsPortOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("METRICS_PORT", "9102")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MetricsPort != 9102 {
		t.Errorf("MetricsPort = %d; want 9102", cfg.MetricsPort)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error due to missing JWT_SECRET, got nil")
	}
}

func TestLoad_PortEnvOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("HTTPPort = %d; want 9999", cfg.HTTPPort)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error due to invalid PORT, got nil")
	}
}
