// Package testutil provides test doubles for the commerce API and
// containers for integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockAPI is a configurable test server speaking the commerce API wire
// format. Unregistered routes answer 404 with a JSON error body.
type MockAPI struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	requestCount atomic.Int32
	requests     []RecordedRequest
}

// HandlerFunc returns the status and the body to encode as JSON. A
// json.RawMessage or []byte body is written verbatim.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (int, interface{})

// RecordedRequest stores information about a received request
type RecordedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
	// Form holds multipart or urlencoded fields, in arrival order
	Form []FormField
	Time time.Time
}

// FormField is one decoded form field
type FormField struct {
	Name     string
	Value    string
	FileName string
}

// FormValue returns the first value of name
func (r RecordedRequest) FormValue(name string) (string, bool) {
	for _, f := range r.Form {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// FormMap returns the fields keyed by name
func (r RecordedRequest) FormMap() map[string]string {
	m := make(map[string]string, len(r.Form))
	for _, f := range r.Form {
		m[f.Name] = f.Value
	}
	return m
}

// NewMockAPI starts a mock server
func NewMockAPI() *MockAPI {
	ms := &MockAPI{
		handlers: make(map[string]HandlerFunc),
		requests: make([]RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleRequest)
	ms.Server = httptest.NewServer(mux)
	return ms
}

// RegisterHandler registers a handler for "METHOD /path". A pattern ending
// in "/" matches every path below it.
func (ms *MockAPI) RegisterHandler(pattern string, handler HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[pattern] = handler
}

// Respond registers a handler that always returns status and body
func (ms *MockAPI) Respond(pattern string, status int, body interface{}) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return status, body
	})
}

// WithErrorResponse sets up a handler that returns an error
func (ms *MockAPI) WithErrorResponse(pattern string, statusCode int, errorMsg string) {
	ms.Respond(pattern, statusCode, map[string]interface{}{
		"status_code": statusCode,
		"error": map[string]string{
			"message": errorMsg,
			"type":    http.StatusText(statusCode),
		},
	})
}

// WithDelayedResponse sets up a handler that delays before responding
func (ms *MockAPI) WithDelayedResponse(pattern string, delay time.Duration, handler HandlerFunc) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		return handler(w, r)
	})
}

func (ms *MockAPI) handleRequest(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header.Clone(),
		Body:    body,
		Form:    parseForm(r.Header.Get("Content-Type"), body),
		Time:    time.Now(),
	})
	ms.mu.Unlock()

	ms.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.Path
	ms.mu.RLock()
	handler, exact := ms.handlers[pattern]
	if !exact {
		longest := 0
		for p, h := range ms.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) && len(p) > longest {
				handler, longest = h, len(p)
			}
		}
	}
	ms.mu.RUnlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status_code": http.StatusNotFound,
			"error":       map[string]string{"message": "Not found", "type": "not_found"},
		})
		return
	}

	status, response := handler(w, r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	switch v := response.(type) {
	case nil:
	case json.RawMessage:
		w.Write(v)
	case []byte:
		w.Write(v)
	default:
		json.NewEncoder(w).Encode(v)
	}
}

func parseForm(contentType string, body []byte) []FormField {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch mediaType {
	case "multipart/form-data":
		reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
		var fields []FormField
		for {
			part, err := reader.NextPart()
			if err != nil {
				return fields
			}
			data, _ := io.ReadAll(part)
			fields = append(fields, FormField{
				Name:     part.FormName(),
				Value:    string(data),
				FileName: part.FileName(),
			})
		}
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil
		}
		var fields []FormField
		for k, vs := range values {
			for _, v := range vs {
				fields = append(fields, FormField{Name: k, Value: v})
			}
		}
		return fields
	}
	return nil
}

// GetRequestCount returns the total number of requests received
func (ms *MockAPI) GetRequestCount() int {
	return int(ms.requestCount.Load())
}

// GetRequests returns all recorded requests
func (ms *MockAPI) GetRequests() []RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]RecordedRequest, len(ms.requests))
	copy(result, ms.requests)
	return result
}

// LastRequest returns the most recent request
func (ms *MockAPI) LastRequest() (RecordedRequest, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if len(ms.requests) == 0 {
		return RecordedRequest{}, false
	}
	return ms.requests[len(ms.requests)-1], true
}

// Reset clears all recorded requests
func (ms *MockAPI) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.requestCount.Store(0)
	ms.requests = ms.requests[:0]
}
