package sdk

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/birbparty/birb-commerce/storage"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the commerce API host used when none is configured
	DefaultBaseURL = "https://api.chec.io"
	// DefaultAPIVersion is the version segment appended to the base URL
	DefaultAPIVersion = "v1"
	// DefaultTimeout bounds a single request
	DefaultTimeout = 60 * time.Second
)

// Config holds the configuration for the commerce client.
// All fields are optional and have sensible defaults. The client copies the
// configuration at construction; changing a Config afterwards has no effect
// on clients already built from it.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithBaseURL("https://api.example.com").
//	    WithTimeout(30 * time.Second).
//	    WithEventCallback(func(name string) {
//	        log.Printf("commerce event: %s", name)
//	    })
//
//	client, err := sdk.New("pk_test_123", false, config)
type Config struct {
	// APIVersion is appended to BaseURL to form the request base.
	// Default: "v1"
	APIVersion string

	// BaseURL is the API host, with or without a trailing slash.
	// Default: "https://api.chec.io"
	BaseURL string

	// PublicKey is used when New is given an empty key
	PublicKey string

	// Debug enables the debug sink for "_console" output and failed requests
	Debug bool

	// Timeout is the per-request timeout.
	// Default: 60s
	Timeout time.Duration

	// EventCallback receives the name of every event the API reports.
	// It replaces the default process-wide bus and must not block.
	EventCallback func(name string)

	// EventEmitter receives events when EventCallback is nil
	EventEmitter EventEmitter

	// DisableEvents drops API events instead of emitting them
	DisableEvents bool

	// TransportOverrides adjust every outgoing request
	TransportOverrides TransportOverrides

	// Logger receives warnings and diagnostics.
	// Default: logrus.StandardLogger()
	Logger logrus.FieldLogger

	// DebugSink receives human readable diagnostics when Debug is set.
	// Default: a sink writing through Logger
	DebugSink DebugSink

	// Observer for monitoring requests, events and errors.
	// If nil, NoopObserver is used.
	Observer Observer

	// HTTPClient issues the requests.
	// Default: an *http.Client with Timeout applied
	HTTPClient Doer

	// Storage persists client state such as the cart id.
	// Default: storage.NewMemoryStore()
	Storage storage.Store

	// TracerProvider creates the spans wrapping each request.
	// Default: the global otel provider
	TracerProvider trace.TracerProvider
}

// TransportOverrides are applied on top of the request the client builds.
// Headers are merged over the mandatory headers rather than replacing them.
//
// Example:
//
//	config := sdk.DefaultConfig().WithTransportOverrides(sdk.TransportOverrides{
//	    Headers: map[string]string{"X-Request-Source": "kiosk"},
//	})
type TransportOverrides struct {
	// Method replaces the HTTP verb sent on the wire. Payload placement
	// still follows the method passed to Request.
	Method string

	// Headers are set on every request, after the mandatory headers
	Headers map[string]string

	// Timeout replaces Config.Timeout when positive
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults suitable for most use cases.
//
// Example:
//
//	client, err := sdk.New(publicKey, false, sdk.DefaultConfig())
func DefaultConfig() *Config {
	return &Config{
		APIVersion: DefaultAPIVersion,
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		Observer:   &NoopObserver{},
	}
}

// ConfigFromEnv builds a Config from COMMERCE_* environment variables on top
// of DefaultConfig:
//
//	COMMERCE_PUBLIC_KEY   public key
//	COMMERCE_BASE_URL     API host
//	COMMERCE_API_VERSION  version segment
//	COMMERCE_DEBUG        "true" enables debug output
//	COMMERCE_TIMEOUT      duration ("30s") or milliseconds ("30000")
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	cfg.PublicKey = os.Getenv("COMMERCE_PUBLIC_KEY")
	if v := os.Getenv("COMMERCE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("COMMERCE_API_VERSION"); v != "" {
		cfg.APIVersion = v
	}
	if v := os.Getenv("COMMERCE_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &ConfigurationError{Field: "COMMERCE_DEBUG", Message: err.Error(), wrapped: ErrInvalidConfig}
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("COMMERCE_TIMEOUT"); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return nil, &ConfigurationError{Field: "COMMERCE_TIMEOUT", Message: err.Error(), wrapped: ErrInvalidConfig}
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration or a plain millisecond count.
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// WithBaseURL sets the API host.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// WithAPIVersion sets the version segment appended to the base URL.
func (c *Config) WithAPIVersion(version string) *Config {
	c.APIVersion = version
	return c
}

// WithTimeout sets the per-request timeout.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithTimeout(10 * time.Second)
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithDebug enables or disables debug output.
func (c *Config) WithDebug(debug bool) *Config {
	c.Debug = debug
	return c
}

// WithEventCallback routes API events to fn instead of the process-wide bus.
func (c *Config) WithEventCallback(fn func(name string)) *Config {
	c.EventCallback = fn
	return c
}

// WithEventEmitter routes API events to emitter.
//
// Example:
//
//	nc, _ := events.NewNATSClient(events.DefaultConfig())
//	config := sdk.DefaultConfig().WithEventEmitter(nc)
func (c *Config) WithEventEmitter(emitter EventEmitter) *Config {
	c.EventEmitter = emitter
	return c
}

// WithHeader adds a header override sent with every request.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithHeader("X-Request-Source", "kiosk")
func (c *Config) WithHeader(key, value string) *Config {
	if c.TransportOverrides.Headers == nil {
		c.TransportOverrides.Headers = make(map[string]string)
	}
	c.TransportOverrides.Headers[key] = value
	return c
}

// WithTransportOverrides replaces the transport overrides.
func (c *Config) WithTransportOverrides(overrides TransportOverrides) *Config {
	c.TransportOverrides = overrides
	return c
}

// WithLogger sets the logger for warnings and diagnostics.
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	c.Logger = logger
	return c
}

// WithDebugSink sets the debug sink used when Debug is enabled.
func (c *Config) WithDebugSink(sink DebugSink) *Config {
	c.DebugSink = sink
	return c
}

// WithObserver sets a custom observer for monitoring SDK operations.
//
// Example:
//
//	metrics := sdk.NewPrometheusObserver()
//	config := sdk.DefaultConfig().
//	    WithObserver(metrics)
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithHTTPClient sets the client that issues requests.
func (c *Config) WithHTTPClient(client Doer) *Config {
	c.HTTPClient = client
	return c
}

// WithStorage sets the store for client state.
func (c *Config) WithStorage(store storage.Store) *Config {
	c.Storage = store
	return c
}

// WithTracerProvider sets the provider for request spans.
func (c *Config) WithTracerProvider(tp trace.TracerProvider) *Config {
	c.TracerProvider = tp
	return c
}

// Validate validates the configuration and sets defaults for missing values.
// This is called automatically by New.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ConfigurationError{Field: "BaseURL", Message: err.Error(), wrapped: ErrInvalidConfig}
	}
	if u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Field: "BaseURL", Message: "must have a scheme and host", wrapped: ErrInvalidConfig}
	}
	c.APIVersion = strings.Trim(c.APIVersion, "/")
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	return nil
}

// clone returns a copy that shares no maps with c.
func (c *Config) clone() *Config {
	cp := *c
	if c.TransportOverrides.Headers != nil {
		cp.TransportOverrides.Headers = make(map[string]string, len(c.TransportOverrides.Headers))
		for k, v := range c.TransportOverrides.Headers {
			cp.TransportOverrides.Headers[k] = v
		}
	}
	return &cp
}
