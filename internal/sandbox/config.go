package sandbox

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the sandbox server settings
type Config struct {
	Host            string
	Port            int
	CatalogPath     string
	PublicKey       string
	CartTTL         time.Duration
	ShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("SANDBOX_PORT", "4000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SANDBOX_PORT: %w", err)
	}

	cartTTL, err := time.ParseDuration(getEnvOrDefault("SANDBOX_CART_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SANDBOX_CART_TTL: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(getEnvOrDefault("SANDBOX_SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SANDBOX_SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Host:            getEnvOrDefault("SANDBOX_HOST", "0.0.0.0"),
		Port:            port,
		CatalogPath:     os.Getenv("SANDBOX_CATALOG"),
		PublicKey:       os.Getenv("SANDBOX_PUBLIC_KEY"),
		CartTTL:         cartTTL,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
