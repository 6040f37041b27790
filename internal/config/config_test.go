package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "test_client_id")
	t.Setenv("STRAVA_CLIENT_SECRET", "test_client_secret")
	t.Setenv("STRAVA_VERIFY_TOKEN", "test_verify_token")
	t.Setenv("INTERNAL_API_KEY", "test_api_key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %q", cfg.Host)
	}
	if cfg.Port != 4201 {
		t.Errorf("Expected default port 4201, got %d", cfg.Port)
	}
	if cfg.DatabasePath != "./runclub.db" {
		t.Errorf("Expected default database path, got %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.MetricsEnabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.MetricsPort != 4202 {
		t.Errorf("Expected default metrics port 4202, got %d", cfg.MetricsPort)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DOMAIN", "club.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Host != "0.0.0.0" || cfg.Port != 8080 {
		t.Errorf("Expected overridden host/port, got %s:%d", cfg.Host, cfg.Port)
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected metrics enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.LogLevel)
	}
	if cfg.Domain != "club.example.com" {
		t.Errorf("Expected domain override, got %q", cfg.Domain)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRAVA_CLIENT_SECRET", "")
	t.Setenv("INTERNAL_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for missing required variables")
	}

	if !strings.Contains(err.Error(), "STRAVA_CLIENT_SECRET") {
		t.Errorf("Expected STRAVA_CLIENT_SECRET in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "INTERNAL_API_KEY") {
		t.Errorf("Expected INTERNAL_API_KEY in error, got %v", err)
	}
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("PORT_TEST", "not-a-number")

	if got := getEnvInt("PORT_TEST", 42); got != 42 {
		t.Errorf("Expected fallback 42, got %d", got)
	}
}
