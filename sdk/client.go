package sdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/birbparty/birb-commerce/storage"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/birbparty/birb-commerce/sdk"

// ErrClientClosed is returned by requests made after Close
var ErrClientClosed = errors.New("client is closed")

// Client talks to the commerce API with a public key. It is safe for
// concurrent use; concurrent requests are independent and may complete in
// any order.
//
// Example:
//
//	client, err := sdk.New("pk_test_123", false, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Request(ctx, "products", "GET", map[string]any{"limit": 25})
//	if err != nil {
//	    var sdkErr *sdk.Error
//	    if errors.As(err, &sdkErr) {
//	        log.Printf("%d %s", sdkErr.StatusCode, sdkErr.StatusText)
//	    }
//	    return err
//	}
type Client struct {
	config    *Config
	publicKey string
	debug     bool
	transport *httpTransport
	emitter   EventEmitter
	sink      DebugSink
	observer  Observer
	logger    logrus.FieldLogger
	tracer    trace.Tracer
	storage   storage.Store
	ownsStore bool

	// Resource helpers
	Products   *Products
	Categories *Categories
	Merchants  *Merchants
	Cart       *Cart

	mu     sync.RWMutex
	closed bool
}

// RequestSpec describes a single call for Do.
type RequestSpec struct {
	Endpoint string
	Method   string
	Data     any
	// ReturnRawResponse skips normalization and error translation
	ReturnRawResponse bool
}

// New creates a commerce client. A nil cfg uses DefaultConfig. An empty
// publicKey falls back to cfg.PublicKey.
//
// A secret key (prefix "sk_", any case) is refused with a
// *ConfigurationError. A missing key only logs a warning: the client is
// built but the API will reject its requests.
func New(publicKey string, debug bool, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if publicKey == "" {
		publicKey = cfg.PublicKey
	}
	publicKey = strings.TrimSpace(publicKey)
	debug = debug || cfg.Debug

	if strings.HasPrefix(strings.ToLower(publicKey), "sk_") {
		return nil, &ConfigurationError{
			Field:   "PublicKey",
			Message: "secret keys must not be used in client code, use a public key",
			wrapped: ErrSecretKey,
		}
	}
	if publicKey == "" {
		cfg.Logger.Warn("No public key given to the commerce client, requests will be rejected by the API")
	}
	cfg.PublicKey = publicKey
	cfg.Debug = debug

	sink := cfg.DebugSink
	if sink == nil {
		sink = NewLogrusSink(cfg.Logger)
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	store := cfg.Storage
	if store == nil {
		store = storage.NewMemoryStore()
	}

	c := &Client{
		config:    cfg,
		publicKey: publicKey,
		debug:     debug,
		transport: newHTTPTransport(cfg, publicKey),
		emitter:   resolveEmitter(cfg),
		sink:      sink,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		tracer:    tp.Tracer(tracerName),
		storage:   store,
		ownsStore: cfg.Storage == nil,
	}
	c.Products = &Products{client: c}
	c.Categories = &Categories{client: c}
	c.Merchants = &Merchants{client: c}
	c.Cart = &Cart{client: c}

	return c, nil
}

// Request calls endpoint and returns the normalized body. For GET, data is
// sent as query parameters; for every other method it is flattened by
// Encode and sent as a multipart form.
//
// Every transport failure, HTTP or network, is returned as *Error. Errors
// from encoding data or decoding the response body are returned as-is.
func (c *Client) Request(ctx context.Context, endpoint, method string, data any) (*Result, error) {
	raw, err := c.roundTrip(ctx, endpoint, method, data)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			sdkErr := c.translateError(te)
			c.notifyError(sdkErr)
			return nil, sdkErr
		}
		return nil, err
	}
	return c.normalize(raw)
}

// RequestRaw calls endpoint and returns the response untouched: reserved
// keys stay in the body, no events are emitted and failures come back as
// the raw *TransportError.
func (c *Client) RequestRaw(ctx context.Context, endpoint, method string, data any) (*RawResponse, error) {
	return c.roundTrip(ctx, endpoint, method, data)
}

// Do runs spec, returning a *Result, or a *RawResponse when
// spec.ReturnRawResponse is set.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (any, error) {
	if spec.ReturnRawResponse {
		raw, err := c.RequestRaw(ctx, spec.Endpoint, spec.Method, spec.Data)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
	result, err := c.Request(ctx, spec.Endpoint, spec.Method, spec.Data)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// roundTrip issues the request with tracing and observer hooks.
func (c *Client) roundTrip(ctx context.Context, endpoint, method string, data any) (*RawResponse, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	method = normalizeMethod(method)

	ctx, span := c.tracer.Start(ctx, "commerce "+method+" "+resourceLabel(endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("commerce.endpoint", endpoint),
		),
	)
	defer span.End()

	c.observer.OnRequestStart(method, endpoint)
	start := time.Now()

	raw, err := c.transport.do(ctx, endpoint, method, data)

	status := 0
	var te *TransportError
	switch {
	case raw != nil:
		status = raw.StatusCode
	case errors.As(err, &te) && te.Response != nil:
		status = te.Response.StatusCode
	}
	c.observer.OnRequestEnd(method, endpoint, status, time.Since(start), err)

	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.debug {
			c.logger.WithFields(logrus.Fields{
				"method":   method,
				"endpoint": endpoint,
				"status":   status,
			}).WithError(err).Debug("Commerce request failed")
		}
	}
	return raw, err
}

// normalize strips the envelope from a successful response, forwarding
// console output and the reported event on the way.
func (c *Client) normalize(raw *RawResponse) (*Result, error) {
	env, err := ParseEnvelope(raw.Body)
	if err != nil {
		return nil, err
	}

	if c.debug && len(env.Console) > 0 {
		args := make([]any, 0, len(env.Console))
		for _, entry := range env.Console {
			args = append(args, decodeLoose(entry))
		}
		safeDebug(c.sink, c.logger, "log", args...)
	}

	if env.Event != "" {
		c.observer.OnEvent(env.Event)
		safeEmit(c.emitter, c.logger, env.Event)
	}

	return newResult(env), nil
}

func (c *Client) notifyError(err *Error) {
	c.observer.OnError(err)
}

// PublicKey returns the key the client authenticates with
func (c *Client) PublicKey() string {
	return c.publicKey
}

// Debug reports whether debug output is enabled
func (c *Client) Debug() bool {
	return c.debug
}

// Storage returns the store holding client state
func (c *Client) Storage() storage.Store {
	return c.storage
}

// BaseURL returns the versioned base every endpoint is resolved against
func (c *Client) BaseURL() string {
	return c.transport.baseURL
}

// Close closes the client and releases resources. A store passed in
// through Config is left open for its owner to close.
// After calling Close, the client should not be used.
// Close is safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	if err := c.transport.close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("transport: %w", err))
	}
	if c.ownsStore {
		if err := c.storage.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("storage: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// checkClosed checks if the client is closed
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}
