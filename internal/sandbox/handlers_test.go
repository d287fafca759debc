package sandbox

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "pk_test_sandbox"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	metrics := telemetry.NewMetrics()
	catalog := DefaultCatalog()
	handler := NewHandler(catalog, NewCartStore(catalog, time.Hour), metrics)
	return NewApp(handler, metrics, "")
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	if req.Header.Get("X-Authorization") == "" {
		req.Header.Set("X-Authorization", testKey)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func multipartRequest(t *testing.T, method, target string, fields [][2]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(t, w.WriteField(f[0], f[1]))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAuthentication(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"secret", "sk_live_123"},
		{"secret upper case", "SK_test_123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/products", nil)
			if tt.key != "" {
				req.Header.Set("X-Authorization", tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, ErrTypeAuthentication, body.Error.Type)
		})
	}
}

func TestAuthenticationWithConfiguredKey(t *testing.T) {
	catalog := DefaultCatalog()
	app := NewApp(NewHandler(catalog, NewCartStore(catalog, 0), nil), nil, "pk_only")

	req := httptest.NewRequest("GET", "/v1/merchants", nil)
	req.Header.Set("X-Authorization", "pk_other")
	status, _ := doRequest(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req = httptest.NewRequest("GET", "/v1/merchants", nil)
	req.Header.Set("X-Authorization", "pk_only")
	status, body := doRequest(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Birb Supply Co.", body["name"])
}

func TestListProducts(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/v1/products?limit=2&category_slug=feeders", nil))
	require.Equal(t, fiber.StatusOK, status)

	data := body["data"].([]any)
	assert.Len(t, data, 2)
	pagination := body["meta"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(4), pagination["total"])
	assert.NotContains(t, body, "_event")
	assert.NotContains(t, body, "_console")
}

func TestListProductsValidation(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/v1/products?limit=1000&sortBy=color", nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	errBody := body["error"].(map[string]any)
	assert.Equal(t, ErrTypeValidation, errBody["type"])
	fields := errBody["errors"].(map[string]any)
	assert.Contains(t, fields, "limit")
	assert.Contains(t, fields, "sortBy")

	status, _ = doRequest(t, app, httptest.NewRequest("GET", "/v1/products?limit=many", nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestRetrieveEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/v1/products/wren-house", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "prod_wren_house", body["id"])

	status, body = doRequest(t, app, httptest.NewRequest("GET", "/v1/categories/houses", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["products"])

	status, body = doRequest(t, app, httptest.NewRequest("GET", "/v1/categories", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 3)

	status, body = doRequest(t, app, httptest.NewRequest("GET", "/v1/products/prod_missing", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, ErrTypeNotFound, body["error"].(map[string]any)["type"])
}

func TestCartFlow(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/v1/carts", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Cart.Created", body["_event"])
	cartID := body["id"].(string)

	status, body = doRequest(t, app, multipartRequest(t, "POST", "/v1/carts/"+cartID, [][2]string{
		{"id", "prod_tube_feeder"},
		{"quantity", "2"},
		{"options[color]", "green"},
	}))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Cart.Item.Added", body["_event"])
	assert.Equal(t, true, body["success"])
	line := body["line_item"].(map[string]any)
	assert.Equal(t, float64(2), line["quantity"])
	assert.Equal(t, map[string]any{"color": "green"}, line["selected_options"])
	lineID := line["id"].(string)

	form := strings.NewReader("quantity=5")
	req := httptest.NewRequest("PUT", "/v1/carts/"+cartID+"/items/"+lineID, form)
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	status, body = doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Cart.Item.Updated", body["_event"])
	assert.Equal(t, float64(5), body["cart"].(map[string]any)["total_items"])

	status, body = doRequest(t, app, httptest.NewRequest("DELETE", "/v1/carts/"+cartID+"/items/"+lineID, nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Cart.Item.Removed", body["_event"])

	status, body = doRequest(t, app, httptest.NewRequest("DELETE", "/v1/carts/"+cartID+"/items", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Cart.Emptied", body["_event"])

	status, body = doRequest(t, app, httptest.NewRequest("DELETE", "/v1/carts/"+cartID, nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Cart.Deleted", body["_event"])

	status, _ = doRequest(t, app, httptest.NewRequest("GET", "/v1/carts/"+cartID, nil))
	assert.Equal(t, fiber.StatusNotFound, status)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `commerce_events_reported_total{event="Cart.Item.Added"} 1`)
	assert.Contains(t, string(raw), `commerce_events_reported_total{event="Cart.Deleted"} 1`)
}

func TestAddItemValidation(t *testing.T) {
	app := newTestApp(t)

	_, cart := doRequest(t, app, httptest.NewRequest("GET", "/v1/carts", nil))
	cartID := cart["id"].(string)

	status, body := doRequest(t, app, multipartRequest(t, "POST", "/v1/carts/"+cartID, [][2]string{
		{"quantity", "0"},
	}))
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	fields := body["error"].(map[string]any)["errors"].(map[string]any)
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "quantity")

	status, body = doRequest(t, app, multipartRequest(t, "POST", "/v1/carts/"+cartID, [][2]string{
		{"id", "prod_nectar_feeder"},
		{"quantity", "10"},
	}))
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	fields = body["error"].(map[string]any)["errors"].(map[string]any)
	assert.Contains(t, fields["quantity"], "only 3")

	status, _ = doRequest(t, app, multipartRequest(t, "POST", "/v1/carts/cart_missing", [][2]string{
		{"id", "prod_seed_mix"},
	}))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDebugConsole(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/v1/carts", nil)
	req.Header.Set(HeaderDebug, "true")
	status, body := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, status)

	console, ok := body["_console"].([]any)
	require.True(t, ok)
	require.Len(t, console, 2)
	assert.Contains(t, console[0], "Created cart cart_")
	assert.Contains(t, console[1], "GET /v1/carts took")
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "6 products", health.Checks["catalog"])

	doRequest(t, app, httptest.NewRequest("GET", "/v1/products/nope", nil))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",route="/v1/products/:id",status="404"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/v1/orders", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Route not found", body["error"].(map[string]any)["message"])
}
