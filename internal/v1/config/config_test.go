package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SIGNING_KEY", "test-signing-key")
	t.Setenv("BROADCAST_KEY", "test-broadcast-key")
}

func TestValidateEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Host != "[::]" {
		t.Errorf("Expected HOST to default to '[::]', got '%s'", cfg.Host)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected PORT to default to '8080', got '%s'", cfg.Port)
	}
	if cfg.ConnectionLimit != 1000 {
		t.Errorf("Expected CONNECTION_LIMIT to default to 1000, got %d", cfg.ConnectionLimit)
	}
	if cfg.BaseURL != "ws://localhost:8080" {
		t.Errorf("Expected BASE_URL to default to 'ws://localhost:8080', got '%s'", cfg.BaseURL)
	}
	if cfg.GoEnv != "production" {
		t.Errorf("Expected GO_ENV to default to 'production', got '%s'", cfg.GoEnv)
	}
	if cfg.DevelopmentMode {
		t.Errorf("Expected development mode off by default")
	}
}

func TestValidateEnv_MissingRequired(t *testing.T) {
	t.Setenv("SIGNING_KEY", "")
	t.Setenv("BROADCAST_KEY", "")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error when required variables are missing")
	}
	if !strings.Contains(err.Error(), "SIGNING_KEY is required") {
		t.Errorf("Expected error to mention SIGNING_KEY, got: %v", err)
	}
	if !strings.Contains(err.Error(), "BROADCAST_KEY is required") {
		t.Errorf("Expected error to mention BROADCAST_KEY, got: %v", err)
	}
}

func TestValidateEnv_ConnectionLimit(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
	}{
		{"explicit value", "25", 25},
		{"parse failure falls back to default", "not-a-number", 1000},
		{"negative falls back to default", "-5", 1000},
		{"zero falls back to default", "0", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("CONNECTION_LIMIT", tt.raw)

			cfg, err := ValidateEnv()
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if cfg.ConnectionLimit != tt.expected {
				t.Errorf("Expected connection limit %d, got %d", tt.expected, cfg.ConnectionLimit)
			}
		})
	}
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := ValidateEnv(); err == nil {
		t.Fatal("Expected error for invalid PORT")
	}
}

func TestValidateEnv_OptionalIntegrations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESSAGE_WEBHOOK_URL", "https://example.com/hook")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("GO_ENV", "development")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.MessageWebhookURL != "https://example.com/hook" {
		t.Errorf("Expected MESSAGE_WEBHOOK_URL to be set, got '%s'", cfg.MessageWebhookURL)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("Expected REDIS_URL to be set, got '%s'", cfg.RedisURL)
	}
	if !cfg.DevelopmentMode {
		t.Errorf("Expected development mode on when GO_ENV=development")
	}
}
