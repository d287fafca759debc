package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Drivers accepted by Open
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSpaces = "spaces"
	DriverFile   = "file"
)

// Config selects and configures a Store
type Config struct {
	Driver  string
	Redis   RedisConfig
	Spaces  SpacesConfig
	FileDir string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string

	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
}

// Address returns the Redis server address
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SpacesConfig contains configuration for Digital Ocean Spaces
type SpacesConfig struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	PathPrefix string
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	home, _ := os.UserHomeDir()

	return &Config{
		Driver: getEnvOrDefault("COMMERCE_STORAGE", DriverMemory),
		Redis: RedisConfig{
			Host:            getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:            port,
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              db,
			KeyPrefix:       getEnvOrDefault("REDIS_KEY_PREFIX", "commerce:"),
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolSize:        10,
		},
		Spaces: SpacesConfig{
			Endpoint:   os.Getenv("SPACES_ENDPOINT"),
			Region:     getEnvOrDefault("SPACES_REGION", "us-east-1"),
			Bucket:     os.Getenv("SPACES_BUCKET"),
			AccessKey:  os.Getenv("SPACES_ACCESS_KEY"),
			SecretKey:  os.Getenv("SPACES_SECRET_KEY"),
			PathPrefix: getEnvOrDefault("SPACES_PATH_PREFIX", "commerce-storage/"),
		},
		FileDir: getEnvOrDefault("COMMERCE_STORAGE_DIR", filepath.Join(home, ".birb-commerce")),
	}, nil
}

// Open builds the Store selected by config.Driver
func Open(config *Config) (Store, error) {
	if config == nil {
		return NewMemoryStore(), nil
	}
	switch config.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		return NewRedisStore(&config.Redis)
	case DriverSpaces:
		if config.Spaces.Bucket == "" {
			return nil, fmt.Errorf("spaces storage requires SPACES_BUCKET")
		}
		return NewSpacesStore(config.Spaces)
	case DriverFile:
		return NewFileStore(nil, config.FileDir)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, config.Driver)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
