package relay

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds relay configuration
type Config struct {
	// Batching
	BatchSize    int
	BatchTimeout time.Duration
	FlushTimeout time.Duration

	// Retry settings for event log writes
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryMultiplier float64
	MaxRetryBackoff time.Duration

	// Retention deletes stored events older than this. Zero keeps everything.
	Retention         time.Duration
	RetentionInterval time.Duration

	// Monitoring
	HealthCheckPort int
}

// DefaultConfig returns the relay defaults
func DefaultConfig() *Config {
	return &Config{
		BatchSize:         100,
		BatchTimeout:      time.Second,
		FlushTimeout:      30 * time.Second,
		MaxRetries:        5,
		RetryBackoff:      500 * time.Millisecond,
		RetryMultiplier:   2.0,
		MaxRetryBackoff:   30 * time.Second,
		RetentionInterval: time.Hour,
		HealthCheckPort:   8081,
	}
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.BatchSize, err = strconv.Atoi(getEnvOrDefault("RELAY_BATCH_SIZE", strconv.Itoa(cfg.BatchSize))); err != nil {
		return nil, fmt.Errorf("invalid RELAY_BATCH_SIZE: %w", err)
	}
	if cfg.BatchTimeout, err = time.ParseDuration(getEnvOrDefault("RELAY_BATCH_TIMEOUT", cfg.BatchTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid RELAY_BATCH_TIMEOUT: %w", err)
	}
	if cfg.FlushTimeout, err = time.ParseDuration(getEnvOrDefault("RELAY_FLUSH_TIMEOUT", cfg.FlushTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid RELAY_FLUSH_TIMEOUT: %w", err)
	}
	if cfg.MaxRetries, err = strconv.Atoi(getEnvOrDefault("RELAY_MAX_RETRIES", strconv.Itoa(cfg.MaxRetries))); err != nil {
		return nil, fmt.Errorf("invalid RELAY_MAX_RETRIES: %w", err)
	}
	if cfg.RetryBackoff, err = time.ParseDuration(getEnvOrDefault("RELAY_RETRY_BACKOFF", cfg.RetryBackoff.String())); err != nil {
		return nil, fmt.Errorf("invalid RELAY_RETRY_BACKOFF: %w", err)
	}
	if cfg.RetryMultiplier, err = strconv.ParseFloat(getEnvOrDefault("RELAY_RETRY_MULTIPLIER", "2.0"), 64); err != nil {
		return nil, fmt.Errorf("invalid RELAY_RETRY_MULTIPLIER: %w", err)
	}
	if cfg.MaxRetryBackoff, err = time.ParseDuration(getEnvOrDefault("RELAY_MAX_RETRY_BACKOFF", cfg.MaxRetryBackoff.String())); err != nil {
		return nil, fmt.Errorf("invalid RELAY_MAX_RETRY_BACKOFF: %w", err)
	}
	if cfg.Retention, err = time.ParseDuration(getEnvOrDefault("RELAY_RETENTION", "0s")); err != nil {
		return nil, fmt.Errorf("invalid RELAY_RETENTION: %w", err)
	}
	if cfg.RetentionInterval, err = time.ParseDuration(getEnvOrDefault("RELAY_RETENTION_INTERVAL", cfg.RetentionInterval.String())); err != nil {
		return nil, fmt.Errorf("invalid RELAY_RETENTION_INTERVAL: %w", err)
	}
	if cfg.HealthCheckPort, err = strconv.Atoi(getEnvOrDefault("RELAY_HEALTH_PORT", strconv.Itoa(cfg.HealthCheckPort))); err != nil {
		return nil, fmt.Errorf("invalid RELAY_HEALTH_PORT: %w", err)
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("RELAY_BATCH_SIZE must be positive")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
