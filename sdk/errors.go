package sdk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Common errors returned by the SDK. These can be used with errors.Is()
// to check for specific error conditions.
//
// Example:
//
//	_, err := client.Request(ctx, "products/prod_123", "GET", nil)
//	if errors.Is(err, sdk.ErrNotFound) {
//	    // Handle missing product
//	} else if errors.Is(err, sdk.ErrTimeout) {
//	    // Handle timeout
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSecretKey is returned when a secret API key is handed to the client
	ErrSecretKey = errors.New("secret key used in client")

	// ErrNotFound is returned when the API answers 404
	ErrNotFound = errors.New("resource not found")

	// ErrTimeout is returned when a request exceeds its deadline
	ErrTimeout = errors.New("request timeout")

	// ErrNetwork is returned when no response was received at all
	ErrNetwork = errors.New("network error")

	// ErrServerError is returned for 5xx server errors
	ErrServerError = errors.New("server error")

	// ErrRateLimited is returned when the request is rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized is returned for 401 and 403 responses
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorType categorizes an Error for handling decisions.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    switch sdkErr.Type {
//	    case sdk.ErrorTypeNetwork:
//	        // No response from the API
//	    case sdk.ErrorTypeValidation:
//	        // Inspect sdkErr.Data for field errors
//	    }
//	}
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown or unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork represents failures where no response was received (DNS, refused, reset)
	ErrorTypeNetwork
	// ErrorTypeTimeout represents requests that exceeded the configured timeout
	ErrorTypeTimeout
	// ErrorTypeServer represents 5xx responses
	ErrorTypeServer
	// ErrorTypeClient represents 4xx responses not covered by a narrower type
	ErrorTypeClient
	// ErrorTypeValidation represents 422 responses
	ErrorTypeValidation
	// ErrorTypeAuthentication represents 401 and 403 responses
	ErrorTypeAuthentication
	// ErrorTypeRateLimit represents 429 responses
	ErrorTypeRateLimit
	// ErrorTypeNotFound represents 404 responses
	ErrorTypeNotFound
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeServer:
		return "server"
	case ErrorTypeClient:
		return "client"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// classifyStatus maps an HTTP status code onto an ErrorType.
func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuthentication
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status >= 500:
		return ErrorTypeServer
	case status >= 400:
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}

// Error is the uniform error returned by Client.Request for every transport
// failure. It is created by the SDK only and is never mutated afterwards.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    fmt.Printf("%d %s\n", sdkErr.StatusCode, sdkErr.StatusText)
//	    fmt.Printf("payload: %v\n", sdkErr.Data)
//	}
type Error struct {
	// Type categorizes the error for handling decisions
	Type ErrorType `json:"type"`
	// Message is a one-line summary including the status code and text
	Message string `json:"message"`
	// StatusCode is the HTTP status of the failed response, 0 when none was received
	StatusCode int `json:"status_code"`
	// StatusText is the HTTP reason phrase, or "Network Error" / "Timeout"
	StatusText string `json:"status_text"`
	// Data is the decoded response body, nil when none was received
	Data any `json:"data,omitempty"`
	// OriginalError is the transport failure this error was translated from
	OriginalError error `json:"-"`
	// Timestamp is when the error was created
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the original transport failure
func (e *Error) Unwrap() error {
	return e.OriginalError
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeNotFound:
		return target == ErrNotFound
	case ErrorTypeTimeout:
		return target == ErrTimeout
	case ErrorTypeNetwork:
		return target == ErrNetwork
	case ErrorTypeServer:
		return target == ErrServerError
	case ErrorTypeRateLimit:
		return target == ErrRateLimited
	case ErrorTypeAuthentication:
		return target == ErrUnauthorized
	}
	return false
}

// Transport returns the original transport failure when it is a *TransportError.
func (e *Error) Transport() (*TransportError, bool) {
	var te *TransportError
	if errors.As(e.OriginalError, &te) {
		return te, true
	}
	return nil, false
}

// TransportError is the raw failure produced by the HTTP layer. It is what
// RequestRaw surfaces untranslated, and what Error.OriginalError carries.
//
// Response is nil when the request never produced a response, for example on
// DNS failures, refused connections or deadline expiry.
type TransportError struct {
	// Op describes the request, e.g. "POST carts/cart_123"
	Op string
	// Response is the non-2xx response, if one was received
	Response *RawResponse
	// Err is the underlying network error when no response was received
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.Response.StatusCode, e.Response.StatusText)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying network error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *TransportError) Timeout() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ConfigurationError is returned by New when the client cannot be built.
// Using a secret key is always a ConfigurationError.
type ConfigurationError struct {
	// Field names the offending configuration value
	Field string
	// Message describes the problem
	Message string
	wrapped error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel this error wraps
func (e *ConfigurationError) Unwrap() error {
	return e.wrapped
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr, true
	}
	return nil, false
}

// IsNotFound checks if the error represents a 404 response.
//
// Example:
//
//	product, err := client.Products.Retrieve(ctx, "prod_missing", nil)
//	if sdk.IsNotFound(err) {
//	    // Show a fallback page
//	}
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsTimeout checks if the error represents a request that exceeded its deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// IsValidation checks if the error represents a 422 response.
func IsValidation(err error) bool {
	sdkErr, ok := AsError(err)
	return ok && sdkErr.Type == ErrorTypeValidation
}
