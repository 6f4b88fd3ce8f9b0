package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	SigningKey   string
	BroadcastKey string

	// Optional variables with defaults
	Host            string
	Port            string
	ConnectionLimit int
	BaseURL         string

	// Optional integrations
	MessageWebhookURL string
	RedisURL          string

	GoEnv           string
	DevelopmentMode bool

	// Rate limits (ulule/limiter formatted rates)
	RateLimitBroadcast string
	RateLimitSign      string
}

const (
	defaultConnectionLimit = 1000
	defaultPort            = "8080"
	defaultHost            = "[::]"
	defaultBaseURL         = "ws://localhost:8080"
)

// ValidateEnv validates all required environment variables and returns a Config object.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: SIGNING_KEY (admission token HMAC secret)
	cfg.SigningKey = os.Getenv("SIGNING_KEY")
	if cfg.SigningKey == "" {
		errors = append(errors, "SIGNING_KEY is required")
	}

	// Required: BROADCAST_KEY (shared secret for /broadcast)
	cfg.BroadcastKey = os.Getenv("BROADCAST_KEY")
	if cfg.BroadcastKey == "" {
		errors = append(errors, "BROADCAST_KEY is required")
	}

	// Optional: HOST / PORT bind address
	cfg.Host = getEnvOrDefault("HOST", defaultHost)
	cfg.Port = getEnvOrDefault("PORT", defaultPort)
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Optional: CONNECTION_LIMIT. Parse failures fall back to the default.
	cfg.ConnectionLimit = defaultConnectionLimit
	if raw := os.Getenv("CONNECTION_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.ConnectionLimit = n
		} else {
			slog.Warn("CONNECTION_LIMIT is not a valid integer, using default",
				"raw", raw, "default", defaultConnectionLimit)
		}
	}

	// Optional: BASE_URL prefix for minted signed URLs
	cfg.BaseURL = getEnvOrDefault("BASE_URL", defaultBaseURL)

	// Optional integrations
	cfg.MessageWebhookURL = os.Getenv("MESSAGE_WEBHOOK_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.DevelopmentMode = cfg.GoEnv == "development"

	// Rate Limits (Defaults: M = Minute)
	cfg.RateLimitBroadcast = getEnvOrDefault("RATE_LIMIT_BROADCAST", "600-M")
	cfg.RateLimitSign = getEnvOrDefault("RATE_LIMIT_SIGN", "100-M")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated",
		"signing_key", redactSecret(cfg.SigningKey),
		"broadcast_key", redactSecret(cfg.BroadcastKey),
		"host", cfg.Host,
		"port", cfg.Port,
		"connection_limit", cfg.ConnectionLimit,
		"base_url", cfg.BaseURL,
		"webhook_configured", cfg.MessageWebhookURL != "",
		"redis_configured", cfg.RedisURL != "",
		"go_env", cfg.GoEnv,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first 8 characters
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
