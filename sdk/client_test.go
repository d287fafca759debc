package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/birbparty/birb-commerce/internal/testutil"
	"github.com/birbparty/birb-commerce/storage"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects emitted event names
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) Emit(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *eventRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// sinkRecorder collects debug sink calls
type sinkRecorder struct {
	mu    sync.Mutex
	calls []sinkCall
}

type sinkCall struct {
	level string
	args  []any
}

func (r *sinkRecorder) Log(level string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sinkCall{level: level, args: args})
}

func (r *sinkRecorder) Calls() []sinkCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkCall(nil), r.calls...)
}

func newTestClient(t *testing.T, server *testutil.MockAPI, debug bool, configure ...func(*Config)) (*Client, *eventRecorder) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	recorder := &eventRecorder{}
	config := DefaultConfig().
		WithBaseURL(server.URL).
		WithEventEmitter(recorder).
		WithLogger(logger)
	for _, fn := range configure {
		fn(config)
	}
	client, err := New("pk_test_123", debug, config)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, recorder
}

func TestNew_RejectsSecretKeys(t *testing.T) {
	for _, key := range []string{"sk_test_123", "SK_live_abc", "Sk_x"} {
		t.Run(key, func(t *testing.T) {
			client, err := New(key, false, nil)
			assert.Nil(t, client)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "PublicKey", cfgErr.Field)
			assert.ErrorIs(t, err, ErrSecretKey)
		})
	}
}

func TestNew_EmptyKeyWarns(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	client, err := New("", false, DefaultConfig().WithLogger(logger).WithEventCallback(func(string) {}))
	require.NoError(t, err)
	defer client.Close()

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "public key")
}

func TestNew_KeyFromConfig(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	config := DefaultConfig().WithLogger(logger)
	config.PublicKey = "pk_from_config"

	client, err := New("", false, config)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "pk_from_config", client.PublicKey())
	assert.Empty(t, hook.Entries)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New("pk_test", false, DefaultConfig().WithBaseURL("not a url"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	config := DefaultConfig().WithHeader("X-One", "1")
	client, err := New("pk_test", true, config.WithEventCallback(func(string) {}))
	require.NoError(t, err)
	defer client.Close()

	config.TransportOverrides.Headers["X-One"] = "changed"
	assert.Equal(t, "1", client.transport.headers.Get("X-One"))
	assert.False(t, config.Debug)
	assert.True(t, client.Debug())
}

func TestClient_BaseURL(t *testing.T) {
	tests := []struct {
		base    string
		version string
		want    string
	}{
		{"https://api.chec.io", "v1", "https://api.chec.io/v1"},
		{"https://api.chec.io/", "v1", "https://api.chec.io/v1"},
		{"http://localhost:8080/api", "v2", "http://localhost:8080/api/v2"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			client, err := New("pk_test", false, DefaultConfig().
				WithBaseURL(tt.base).
				WithAPIVersion(tt.version).
				WithEventCallback(func(string) {}))
			require.NoError(t, err)
			defer client.Close()
			assert.Equal(t, tt.want, client.BaseURL())
		})
	}
}

func TestRequest_SendsHeaders(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/products", http.StatusOK, map[string]any{"data": []any{}})

	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithHeader("X-Request-Source", "kiosk").
			WithHeader("Accept", "application/vnd.commerce+json")
	})

	_, err := client.Request(context.Background(), "products", "GET", nil)
	require.NoError(t, err)

	req, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "pk_test_123", req.Headers.Get("X-Authorization"))
	assert.Equal(t, "birb-commerce-go/"+Version, req.Headers.Get("X-Commerce-Agent"))
	assert.Equal(t, "application/vnd.commerce+json", req.Headers.Get("Accept"))
	assert.Equal(t, "kiosk", req.Headers.Get("X-Request-Source"))
}

func TestRequest_GetUsesQueryParameters(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/products", http.StatusOK, map[string]any{"data": []any{}})

	client, _ := newTestClient(t, server, false)

	_, err := client.Request(context.Background(), "/products", "get", map[string]any{
		"limit":    25,
		"sortBy":   "price",
		"skip":     nil,
		"category": []string{"shoes", "hats"},
	})
	require.NoError(t, err)

	req, _ := server.LastRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v1/products", req.Path)
	assert.Equal(t, "25", req.Query.Get("limit"))
	assert.Equal(t, "price", req.Query.Get("sortBy"))
	assert.Equal(t, []string{"shoes", "hats"}, req.Query["category[]"])
	assert.NotContains(t, req.Query, "skip")
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Form)
}

func TestRequest_PostUsesEncodedForm(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("POST /v1/carts/cart_1", http.StatusOK, map[string]any{"success": true})

	client, _ := newTestClient(t, server, false)

	_, err := client.Request(context.Background(), "carts/cart_1", "POST", map[string]any{
		"id":       "prod_1",
		"quantity": 2,
		"options":  map[string]any{"vgrp_size": "optn_large"},
	})
	require.NoError(t, err)

	req, _ := server.LastRequest()
	assert.Empty(t, req.Query)
	assert.True(t, strings.HasPrefix(req.Headers.Get("Content-Type"), "multipart/form-data"))
	assert.Equal(t, map[string]string{
		"id":                 "prod_1",
		"quantity":           "2",
		"options[vgrp_size]": "optn_large",
	}, req.FormMap())
}

func TestRequest_ScalarBody(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("PUT /v1/notes", http.StatusOK, map[string]any{})

	client, _ := newTestClient(t, server, false)

	_, err := client.Request(context.Background(), "notes", "PUT", "gift wrap please")
	require.NoError(t, err)

	req, _ := server.LastRequest()
	assert.Equal(t, "gift wrap please", string(req.Body))
	assert.Equal(t, "text/plain; charset=utf-8", req.Headers.Get("Content-Type"))
}

func TestRequest_MethodOverride(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("PATCH /v1/carts/cart_1", http.StatusOK, map[string]any{})

	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.TransportOverrides.Method = "patch"
	})

	_, err := client.Request(context.Background(), "carts/cart_1", "POST", map[string]any{"quantity": 1})
	require.NoError(t, err)

	req, _ := server.LastRequest()
	assert.Equal(t, http.MethodPatch, req.Method)
	value, ok := req.FormValue("quantity")
	assert.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestRequest_StripsEventAndEmitsOnce(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/carts/cart_1", http.StatusOK,
		[]byte(`{"_event":"Cart.Item.Added","id":"cart_1","total_items":3}`))

	observer := NewMetricsCollector()
	client, recorder := newTestClient(t, server, false, func(c *Config) {
		c.WithObserver(observer)
	})

	result, err := client.Request(context.Background(), "carts/cart_1", "GET", nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"cart_1","total_items":3}`, string(result.Raw()))
	assert.Equal(t, "Cart.Item.Added", result.Event())
	assert.Equal(t, []string{"Cart.Item.Added"}, recorder.Events())

	events := observer.GetMetrics()["events"].(map[string]int64)
	assert.Equal(t, int64(1), events["Cart.Item.Added"])
}

func TestRequest_NoEventNoEmission(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/products", http.StatusOK, map[string]any{"data": []any{}})

	client, recorder := newTestClient(t, server, false)

	_, err := client.Request(context.Background(), "products", "GET", nil)
	require.NoError(t, err)
	assert.Empty(t, recorder.Events())
}

func TestRequest_ArrayAndPrimitivePassthrough(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/list", http.StatusOK, []byte(`[{"_event":"x"},2]`))
	server.Respond("GET /v1/count", http.StatusOK, []byte(`42`))

	client, recorder := newTestClient(t, server, false)

	result, err := client.Request(context.Background(), "list", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, `[{"_event":"x"},2]`, string(result.Raw()))
	assert.False(t, result.IsObject())

	result, err = client.Request(context.Background(), "count", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(42), result.Data())

	assert.Empty(t, recorder.Events())
}

func TestRequest_ValidationError(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.WithErrorResponse("POST /v1/checkouts/chkt_1", http.StatusUnprocessableEntity, "email is required")

	sink := &sinkRecorder{}
	observer := NewMetricsCollector()
	client, _ := newTestClient(t, server, true, func(c *Config) {
		c.WithDebugSink(sink).WithObserver(observer)
	})

	_, err := client.Request(context.Background(), "checkouts/chkt_1", "POST", map[string]any{"email": ""})
	require.Error(t, err)

	sdkErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 422, sdkErr.StatusCode)
	assert.Equal(t, "Unprocessable Entity", sdkErr.StatusText)
	assert.Equal(t, "Request failed with status 422 Unprocessable Entity", sdkErr.Message)
	assert.Equal(t, ErrorTypeValidation, sdkErr.Type)

	data, ok := sdkErr.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "email is required", data["error"].(map[string]any)["message"])

	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "error", calls[0].level)
	require.Len(t, calls[0].args, 3)
	assert.Equal(t, "[422] Type: Unprocessable Entity", calls[0].args[0])
	assert.Equal(t, "Unprocessable Entity", calls[0].args[1])
	assert.Equal(t, sdkErr.Data, calls[0].args[2])

	errs := observer.GetMetrics()["errors"].(map[string]int64)
	assert.Equal(t, int64(1), errs["validation"])
}

func TestRequest_ErrorWithoutDebugSkipsSink(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()

	sink := &sinkRecorder{}
	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithDebugSink(sink)
	})

	_, err := client.Request(context.Background(), "products/missing", "GET", nil)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, sink.Calls())
}

func TestRequest_ConsoleForwardedInDebug(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/products", http.StatusOK,
		[]byte(`{"_console":["cache miss",3],"data":[]}`))

	sink := &sinkRecorder{}
	client, _ := newTestClient(t, server, true, func(c *Config) {
		c.WithDebugSink(sink)
	})

	result, err := client.Request(context.Background(), "products", "GET", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(result.Raw()))

	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "log", calls[0].level)
	assert.Equal(t, []any{"cache miss", float64(3)}, calls[0].args)
}

func TestRequest_ConsoleDroppedWithoutDebug(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/products", http.StatusOK, []byte(`{"_console":["hidden"],"data":[]}`))

	sink := &sinkRecorder{}
	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithDebugSink(sink)
	})

	result, err := client.Request(context.Background(), "products", "GET", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(result.Raw()))
	assert.Empty(t, sink.Calls())
}

func TestRequest_PanickingCollaboratorsAreContained(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/carts/cart_1", http.StatusOK, []byte(`{"_event":"Cart.Retrieved","_console":["x"],"id":"cart_1"}`))

	logger, hook := logtest.NewNullLogger()
	config := DefaultConfig().
		WithBaseURL(server.URL).
		WithLogger(logger).
		WithEventCallback(func(string) { panic("listener failed") }).
		WithDebugSink(DebugSinkFunc(func(string, ...any) { panic("sink failed") }))

	client, err := New("pk_test", true, config)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Request(context.Background(), "carts/cart_1", "GET", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cart_1"}`, string(result.Raw()))

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "Event emitter panicked")
	assert.Contains(t, messages, "Debug sink panicked")
}

func TestRequest_DisableEvents(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/carts", http.StatusOK, []byte(`{"_event":"Cart.Created","id":"cart_1"}`))

	var called atomic.Int32
	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithEventCallback(func(string) { called.Add(1) })
		c.DisableEvents = true
	})

	result, err := client.Request(context.Background(), "carts", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cart.Created", result.Event())
	assert.Zero(t, called.Load())
}

func TestRequest_EventCallbackWinsOverEmitter(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/carts", http.StatusOK, []byte(`{"_event":"Cart.Created","id":"cart_1"}`))

	var got []string
	client, recorder := newTestClient(t, server, false, func(c *Config) {
		c.WithEventCallback(func(name string) { got = append(got, name) })
	})

	_, err := client.Request(context.Background(), "carts", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cart.Created"}, got)
	assert.Empty(t, recorder.Events())
}

func TestRequestRaw_BypassesNormalization(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/carts/cart_1", http.StatusOK, []byte(`{"_event":"Cart.Retrieved","id":"cart_1"}`))
	server.WithErrorResponse("GET /v1/carts/missing", http.StatusNotFound, "no cart")

	client, recorder := newTestClient(t, server, false)

	raw, err := client.RequestRaw(context.Background(), "carts/cart_1", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, "OK", raw.StatusText)
	assert.Equal(t, `{"_event":"Cart.Retrieved","id":"cart_1"}`, string(raw.Body))
	assert.Empty(t, recorder.Events())

	_, err = client.RequestRaw(context.Background(), "carts/missing", "GET", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.NotNil(t, te.Response)
	assert.Equal(t, http.StatusNotFound, te.Response.StatusCode)
	_, isSDKErr := AsError(err)
	assert.False(t, isSDKErr)
}

func TestDo(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.Respond("GET /v1/merchants", http.StatusOK, []byte(`{"_event":"Merchant.Viewed","id":1}`))

	client, _ := newTestClient(t, server, false)

	out, err := client.Do(context.Background(), RequestSpec{Endpoint: "merchants"})
	require.NoError(t, err)
	result, ok := out.(*Result)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(result.Raw()))

	out, err = client.Do(context.Background(), RequestSpec{Endpoint: "merchants", ReturnRawResponse: true})
	require.NoError(t, err)
	raw, ok := out.(*RawResponse)
	require.True(t, ok)
	assert.Contains(t, string(raw.Body), "_event")
}

func TestRequest_Timeout(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.WithDelayedResponse("GET /v1/products", 2*time.Second, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]any{}
	})

	client, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithTimeout(50 * time.Millisecond)
	})

	_, err := client.Request(context.Background(), "products", "GET", nil)
	require.Error(t, err)

	sdkErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, sdkErr.StatusCode)
	assert.Equal(t, StatusTextTimeout, sdkErr.StatusText)
	assert.True(t, IsTimeout(err))
	assert.Nil(t, sdkErr.Data)
}

func TestRequest_NetworkError(t *testing.T) {
	server := testutil.NewMockAPI()
	url := server.URL
	server.Close()

	logger, _ := logtest.NewNullLogger()
	client, err := New("pk_test", false, DefaultConfig().
		WithBaseURL(url).
		WithLogger(logger).
		WithEventCallback(func(string) {}))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Request(context.Background(), "products", "GET", nil)
	require.Error(t, err)

	sdkErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, sdkErr.StatusCode)
	assert.Equal(t, StatusTextNetworkError, sdkErr.StatusText)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, strings.HasPrefix(sdkErr.Message, "Request failed with status 0 Network Error"))
}

func TestRequest_EncodingErrorIsNotTranslated(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()

	client, _ := newTestClient(t, server, false)

	_, err := client.Request(context.Background(), "products", "GET", []int{1, 2})
	require.Error(t, err)
	_, ok := AsError(err)
	assert.False(t, ok)
	assert.Zero(t, server.GetRequestCount())
}

func TestRequest_ConcurrentCallsAreIndependent(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()
	server.RegisterHandler("GET /v1/products/", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/products/")
		return http.StatusOK, map[string]any{"_event": "Product.Viewed", "id": id}
	})

	client, recorder := newTestClient(t, server, false)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("prod_%d", i)
			product, err := RequestAs[Product](context.Background(), client, "products/"+id, "GET", nil)
			if err != nil {
				errs <- err
				return
			}
			if product.ID != id {
				errs <- fmt.Errorf("got %s, want %s", product.ID, id)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, recorder.Events(), n)
}

func TestClose(t *testing.T) {
	server := testutil.NewMockAPI()
	defer server.Close()

	owned, _ := newTestClient(t, server, false)
	require.NoError(t, owned.Close())
	require.NoError(t, owned.Close())

	_, err := owned.Request(context.Background(), "products", "GET", nil)
	assert.ErrorIs(t, err, ErrClientClosed)

	_, err = owned.Storage().Get(context.Background(), CartStorageKey)
	assert.ErrorIs(t, err, storage.ErrStoreClosed)

	shared := storage.NewMemoryStore()
	borrowed, _ := newTestClient(t, server, false, func(c *Config) {
		c.WithStorage(shared)
	})
	require.NoError(t, borrowed.Close())
	require.NoError(t, shared.Set(context.Background(), "k", "v", 0))
}
