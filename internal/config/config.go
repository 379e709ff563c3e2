// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	BackendURL     string
	BackendTimeout time.Duration
	SessionTTL     time.Duration // stored device sessions
	ViewIdleTTL    time.Duration // in-memory dashboard views
	MetricsEnabled bool
	Notify         NotifyConfig
}

// NotifyConfig controls how long notifications stay visible.
type NotifyConfig struct {
	InfoTTL  time.Duration
	ErrorTTL time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/propdesk.db"),
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),
		ViewIdleTTL:    getEnvDuration("VIEW_IDLE_TTL", 30*time.Minute),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		Notify: NotifyConfig{
			InfoTTL:  getEnvDuration("NOTIFY_INFO_TTL", 3*time.Second),
			ErrorTTL: getEnvDuration("NOTIFY_ERROR_TTL", 5*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if c.ViewIdleTTL <= 0 {
		return fmt.Errorf("VIEW_IDLE_TTL must be > 0")
	}
	if c.Notify.InfoTTL <= 0 || c.Notify.ErrorTTL <= 0 {
		return fmt.Errorf("NOTIFY_INFO_TTL and NOTIFY_ERROR_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go duration strings ("5s") or bare seconds ("5").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
