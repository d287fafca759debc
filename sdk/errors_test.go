package sdk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{400, ErrorTypeClient},
		{401, ErrorTypeAuthentication},
		{403, ErrorTypeAuthentication},
		{404, ErrorTypeNotFound},
		{408, ErrorTypeTimeout},
		{409, ErrorTypeClient},
		{422, ErrorTypeValidation},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServer},
		{503, ErrorTypeServer},
		{504, ErrorTypeTimeout},
		{302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.status))
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "validation", ErrorTypeValidation.String())
	assert.Equal(t, "rate_limit", ErrorTypeRateLimit.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}

func TestNewErrorFromTransport_ValidationResponse(t *testing.T) {
	te := &TransportError{
		Op: "POST carts/cart_1",
		Response: &RawResponse{
			StatusCode: 422,
			StatusText: "Unprocessable",
			Body:       []byte(`{"error":{"message":"quantity is required"}}`),
		},
	}

	err := newErrorFromTransport(te)

	assert.Equal(t, "Request failed with status 422 Unprocessable", err.Message)
	assert.Equal(t, "Request failed with status 422 Unprocessable", err.Error())
	assert.Equal(t, 422, err.StatusCode)
	assert.Equal(t, "Unprocessable", err.StatusText)
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, map[string]any{
		"error": map[string]any{"message": "quantity is required"},
	}, err.Data)
	assert.False(t, err.Timestamp.IsZero())
	assert.True(t, IsValidation(err))

	original, ok := err.Transport()
	require.True(t, ok)
	assert.Same(t, te, original)
}

func TestNewErrorFromTransport_TextBody(t *testing.T) {
	err := newErrorFromTransport(&TransportError{
		Op:       "GET products",
		Response: &RawResponse{StatusCode: 502, StatusText: "Bad Gateway", Body: []byte("upstream down")},
	})

	assert.Equal(t, "upstream down", err.Data)
	assert.Equal(t, "upstream down", debugMessage(err))
	assert.True(t, errors.Is(err, ErrServerError))
}

func TestNewErrorFromTransport_NoResponse(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		cause := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		err := newErrorFromTransport(&TransportError{Op: "GET products", Err: cause})

		assert.Equal(t, 0, err.StatusCode)
		assert.Equal(t, StatusTextNetworkError, err.StatusText)
		assert.Equal(t, ErrorTypeNetwork, err.Type)
		assert.Nil(t, err.Data)
		assert.Contains(t, err.Message, "Request failed with status 0 Network Error: ")
		assert.True(t, errors.Is(err, ErrNetwork))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, StatusTextNetworkError, debugMessage(err))
	})

	t.Run("deadline", func(t *testing.T) {
		err := newErrorFromTransport(&TransportError{
			Op:  "GET products",
			Err: fmt.Errorf("%w: dial tcp", context.DeadlineExceeded),
		})

		assert.Equal(t, 0, err.StatusCode)
		assert.Equal(t, StatusTextTimeout, err.StatusText)
		assert.Equal(t, ErrorTypeTimeout, err.Type)
		assert.True(t, IsTimeout(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		errType ErrorType
		target  error
	}{
		{ErrorTypeNotFound, ErrNotFound},
		{ErrorTypeTimeout, ErrTimeout},
		{ErrorTypeNetwork, ErrNetwork},
		{ErrorTypeServer, ErrServerError},
		{ErrorTypeRateLimit, ErrRateLimited},
		{ErrorTypeAuthentication, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			err := &Error{Type: tt.errType}
			assert.True(t, errors.Is(err, tt.target))
			assert.False(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	wrapped := fmt.Errorf("loading product: %w", &Error{Type: ErrorTypeNotFound})
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsTimeout(nil))
}

func TestTransportError(t *testing.T) {
	withResponse := &TransportError{
		Op:       "GET products/prod_1",
		Response: &RawResponse{StatusCode: 404, StatusText: "Not Found"},
	}
	assert.Equal(t, "GET products/prod_1: unexpected status 404 Not Found", withResponse.Error())
	assert.False(t, withResponse.Timeout())

	withErr := &TransportError{Op: "GET products", Err: errors.New("boom")}
	assert.Equal(t, "GET products: boom", withErr.Error())
	assert.False(t, withErr.Timeout())
	assert.False(t, IsTimeout(withErr))
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "PublicKey", Message: "bad key", wrapped: ErrSecretKey}
	assert.Equal(t, "configuration error: PublicKey: bad key", err.Error())
	assert.ErrorIs(t, err, ErrSecretKey)
}

func TestAsError(t *testing.T) {
	sdkErr := &Error{Type: ErrorTypeValidation}
	got, ok := AsError(fmt.Errorf("wrapped: %w", sdkErr))
	require.True(t, ok)
	assert.Same(t, sdkErr, got)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}
