package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names sent with every request
const (
	HeaderAuthorization = "X-Authorization"
	HeaderAgent         = "X-Commerce-Agent"
)

// Version is the SDK version reported in the agent header
const Version = "1.0.0"

// Doer is the subset of http.Client the SDK uses. Supply your own to add
// tracing, proxies or recorded fixtures in tests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// RawResponse is a fully read HTTP response. RequestRaw returns it as-is,
// with the reserved envelope keys still in the body.
type RawResponse struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
}

// JSON unmarshals the body into dst.
func (r *RawResponse) JSON(dst any) error {
	return json.Unmarshal(r.Body, dst)
}

// Data returns the body decoded into generic Go values. Non-JSON bodies come
// back as a string and empty bodies as nil.
func (r *RawResponse) Data() any {
	return decodeLoose(r.Body)
}

// httpTransport builds and issues requests against the commerce API.
type httpTransport struct {
	client  Doer
	baseURL string
	headers http.Header
	method  string
	timeout time.Duration
}

// newHTTPTransport creates the transport for a validated config.
func newHTTPTransport(cfg *Config, publicKey string) *httpTransport {
	timeout := cfg.Timeout
	if cfg.TransportOverrides.Timeout > 0 {
		timeout = cfg.TransportOverrides.Timeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	headers := make(http.Header)
	headers.Set(HeaderAuthorization, publicKey)
	headers.Set(HeaderAgent, "birb-commerce-go/"+Version)
	headers.Set("Accept", "application/json")
	for k, v := range cfg.TransportOverrides.Headers {
		headers.Set(k, v)
	}

	return &httpTransport{
		client:  client,
		baseURL: joinBaseURL(cfg.BaseURL, cfg.APIVersion),
		headers: headers,
		method:  strings.ToUpper(cfg.TransportOverrides.Method),
		timeout: timeout,
	}
}

// joinBaseURL appends a separator when missing and then the version segment.
func joinBaseURL(baseURL, version string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + version
}

// endpointURL resolves an endpoint against the versioned base.
func (t *httpTransport) endpointURL(endpoint string) string {
	return t.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// normalizeMethod upper-cases method, defaulting to GET.
func normalizeMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

// buildRequest places data according to method: query parameters for GET,
// an encoded body otherwise.
func (t *httpTransport) buildRequest(ctx context.Context, endpoint, method string, data any) (*http.Request, error) {
	target := t.endpointURL(endpoint)

	var (
		body        io.Reader
		contentType string
	)
	if method == http.MethodGet {
		query, err := buildQuery(data)
		if err != nil {
			return nil, err
		}
		if encoded := query.Encode(); encoded != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encoded
		}
	} else {
		var err error
		body, contentType, err = encodeBody(data)
		if err != nil {
			return nil, err
		}
	}

	wireMethod := method
	if t.method != "" {
		wireMethod = t.method
	}

	req, err := http.NewRequestWithContext(ctx, wireMethod, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range t.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// encodeBody runs data through the encoder and renders the result.
func encodeBody(data any) (io.Reader, string, error) {
	if data == nil {
		return nil, "", nil
	}
	encoded, err := Encode(data)
	if err != nil {
		return nil, "", err
	}

	switch v := encoded.(type) {
	case *Payload:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := v.WriteMultipart(w); err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	case json.RawMessage:
		return bytes.NewReader(v), "application/json", nil
	case io.Reader:
		return v, "application/octet-stream", nil
	case File:
		return v.Reader, fileContentType(v.ContentType), nil
	case *File:
		return v.Reader, fileContentType(v.ContentType), nil
	}

	s, err := formatScalar(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return strings.NewReader(s), "text/plain; charset=utf-8", nil
}

func fileContentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// do issues one request. Non-2xx responses and network failures come back
// as *TransportError; errors building the request are returned unwrapped.
func (t *httpTransport) do(ctx context.Context, endpoint, method string, data any) (*RawResponse, error) {
	method = normalizeMethod(method)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := t.buildRequest(ctx, endpoint, method, data)
	if err != nil {
		return nil, err
	}
	op := req.Method + " " + endpoint

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	raw := &RawResponse{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Body:       body,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: op, Response: raw}
	}
	return raw, nil
}

// statusText extracts the reason phrase from "422 Unprocessable Entity".
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// close releases idle connections of the default client
func (t *httpTransport) close() error {
	if c, ok := t.client.(*http.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}
