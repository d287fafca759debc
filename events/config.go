package events

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds NATS settings for cross-process event delivery
type Config struct {
	// NATS connection settings
	URL      string
	Name     string
	User     string
	Password string

	// SubjectPrefix is prepended to every event subject
	SubjectPrefix string

	// JetStream settings. An empty StreamName publishes on core NATS only.
	StreamName     string
	StreamMaxAge   time.Duration
	StreamMaxMsgs  int64
	StreamReplicas int

	// Consumer settings
	ConsumerName          string
	ConsumerMaxDeliver    int
	ConsumerAckWait       time.Duration
	ConsumerMaxAckPending int
	FetchBatch            int
	FetchWait             time.Duration

	// Logger receives connection and publish failures
	Logger logrus.FieldLogger
}

// DefaultConfig returns settings for a local NATS server
func DefaultConfig() *Config {
	return &Config{
		URL:                   "nats://localhost:4222",
		Name:                  "birb-commerce",
		SubjectPrefix:         "commerce.events",
		StreamName:            "COMMERCE_EVENTS",
		StreamMaxAge:          7 * 24 * time.Hour,
		StreamMaxMsgs:         1_000_000,
		StreamReplicas:        1,
		ConsumerName:          "commerce-relay",
		ConsumerMaxDeliver:    5,
		ConsumerAckWait:       30 * time.Second,
		ConsumerMaxAckPending: 1000,
		FetchBatch:            100,
		FetchWait:             time.Second,
	}
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	cfg.URL = getEnvOrDefault("NATS_URL", cfg.URL)
	cfg.Name = getEnvOrDefault("NATS_NAME", cfg.Name)
	cfg.User = os.Getenv("NATS_USER")
	cfg.Password = os.Getenv("NATS_PASSWORD")
	cfg.SubjectPrefix = getEnvOrDefault("EVENTS_SUBJECT_PREFIX", cfg.SubjectPrefix)
	cfg.StreamName = getEnvOrDefault("EVENTS_STREAM_NAME", cfg.StreamName)
	cfg.ConsumerName = getEnvOrDefault("EVENTS_CONSUMER_NAME", cfg.ConsumerName)

	var err error
	if cfg.StreamMaxAge, err = time.ParseDuration(getEnvOrDefault("EVENTS_STREAM_MAX_AGE", cfg.StreamMaxAge.String())); err != nil {
		return nil, fmt.Errorf("invalid EVENTS_STREAM_MAX_AGE: %w", err)
	}
	if cfg.ConsumerMaxDeliver, err = strconv.Atoi(getEnvOrDefault("EVENTS_CONSUMER_MAX_DELIVER", strconv.Itoa(cfg.ConsumerMaxDeliver))); err != nil {
		return nil, fmt.Errorf("invalid EVENTS_CONSUMER_MAX_DELIVER: %w", err)
	}
	if cfg.FetchBatch, err = strconv.Atoi(getEnvOrDefault("EVENTS_FETCH_BATCH", strconv.Itoa(cfg.FetchBatch))); err != nil {
		return nil, fmt.Errorf("invalid EVENTS_FETCH_BATCH: %w", err)
	}
	if cfg.FetchWait, err = time.ParseDuration(getEnvOrDefault("EVENTS_FETCH_WAIT", cfg.FetchWait.String())); err != nil {
		return nil, fmt.Errorf("invalid EVENTS_FETCH_WAIT: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
