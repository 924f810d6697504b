package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DBDriver string
	DBDSN    string

	TokenKey     string
	SessionTTL   time.Duration
	LegacyTokens bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RateLimit      float64
	SessionSweep   time.Duration
	SecureCookies  bool
	AllowedOrigins []string

	// TrustProxyHeaders keys rate limits on CF-Connecting-IP and
	// X-Forwarded-For. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool

	BaseURL             string
	PostmarkServerToken string
	PostmarkFromEmail   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnvOrDefault("WEBINARHUB_PORT", "8080"),
		LogLevel:            getEnvOrDefault("WEBINARHUB_LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("WEBINARHUB_LOG_FORMAT", "text"),
		DBDriver:            strings.ToLower(getEnvOrDefault("WEBINARHUB_DB_DRIVER", "sqlite")),
		DBDSN:               getEnvOrDefault("WEBINARHUB_DB_DSN", "webinarhub.db"),
		TokenKey:            os.Getenv("AUTH_TOKEN_KEY"),
		LegacyTokens:        getBoolEnv("AUTH_LEGACY_TOKENS", false),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:   os.Getenv("GOOGLE_REDIRECT_URL"),
		SecureCookies:       getBoolEnv("WEBINARHUB_SECURE_COOKIES", true),
		AllowedOrigins:      splitList(os.Getenv("WEBINARHUB_ALLOWED_ORIGINS")),
		BaseURL:             strings.TrimRight(getEnvOrDefault("WEBINARHUB_BASE_URL", "http://localhost:8080"), "/"),
		PostmarkServerToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkFromEmail:   os.Getenv("POSTMARK_FROM_EMAIL"),
		TrustProxyHeaders:   getBoolEnv("WEBINARHUB_TRUST_PROXY_HEADERS", false),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getEnvOrDefault("AUTH_SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid AUTH_SESSION_TTL: %w", err)
	}
	if cfg.SessionSweep, err = time.ParseDuration(getEnvOrDefault("WEBINARHUB_SESSION_SWEEP", "15m")); err != nil {
		return nil, fmt.Errorf("invalid WEBINARHUB_SESSION_SWEEP: %w", err)
	}
	if cfg.RateLimit, err = strconv.ParseFloat(getEnvOrDefault("WEBINARHUB_RATE_LIMIT", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid WEBINARHUB_RATE_LIMIT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.DBDriver)
	}
	if c.TokenKey == "" {
		return errors.New("AUTH_TOKEN_KEY is required")
	}
	if len(c.TokenKey) < 32 {
		return errors.New("AUTH_TOKEN_KEY must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("session TTL must be at least 1 minute, got: %v", c.SessionTTL)
	}
	if c.SessionSweep <= 0 {
		return fmt.Errorf("session sweep interval must be positive, got: %v", c.SessionSweep)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got: %v", c.RateLimit)
	}
	return nil
}

// GoogleEnabled reports whether every Google OAuth setting is present.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// EmailEnabled reports whether registration confirmations can be sent.
func (c *Config) EmailEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkFromEmail != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
