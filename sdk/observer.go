package sdk

import (
	"sync"
	"time"
)

// Observer provides hooks for monitoring SDK operations.
// Implement this interface to track performance metrics, debug issues,
// or integrate with your observability stack.
//
// Observer methods should be fast and non-blocking to avoid impacting performance.
//
// Example implementation:
//
//	type LogObserver struct {
//	    logger *log.Logger
//	}
//
//	func (o *LogObserver) OnRequestStart(method, endpoint string) {
//	    o.logger.Printf("[START] %s %s", method, endpoint)
//	}
//
//	func (o *LogObserver) OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error) {
//	    o.logger.Printf("[END] %s %s %d (took %v)", method, endpoint, status, duration)
//	}
//
//	func (o *LogObserver) OnEvent(name string) {}
//
//	func (o *LogObserver) OnError(err *sdk.Error) {}
type Observer interface {
	// OnRequestStart is called before a request is sent.
	OnRequestStart(method, endpoint string)

	// OnRequestEnd is called when a request completes. status is 0 when no
	// response was received.
	OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error)

	// OnEvent is called for each event name a response carried.
	OnEvent(name string)

	// OnError is called for each translated transport failure.
	OnError(err *Error)
}

// NoopObserver is a no-op implementation of Observer that does nothing.
// This is the default observer used when none is configured.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(method, endpoint string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error) {
}

// OnEvent does nothing
func (n *NoopObserver) OnEvent(name string) {}

// OnError does nothing
func (n *NoopObserver) OnError(err *Error) {}

// MetricsCollector is a simple in-memory metrics implementation.
// It is primarily intended for debugging and tests; use PrometheusObserver
// to export metrics.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	config := sdk.DefaultConfig().
//	    WithObserver(metrics)
//
//	// Use client...
//
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Events: %v\n", snapshot["events"])
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount map[string]int64
	latencies    map[string][]time.Duration
	statusCount  map[int]int64
	errorCount   map[string]int64
	eventCount   map[string]int64
}

// NewMetricsCollector creates a new metrics collector for tracking SDK operations.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		statusCount:  make(map[int]int64),
		errorCount:   make(map[string]int64),
		eventCount:   make(map[string]int64),
	}
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(method, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+endpoint]++
}

// OnRequestEnd records request duration and status
func (m *MetricsCollector) OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + endpoint
	m.latencies[key] = append(m.latencies[key], duration)
	m.statusCount[status]++
}

// OnEvent counts events by name
func (m *MetricsCollector) OnEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[name]++
}

// OnError counts errors by type
func (m *MetricsCollector) OnError(err *Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[err.Type.String()]++
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of "METHOD endpoint" to request count
//   - "latencies": Map of "METHOD endpoint" to latency measurements
//   - "statuses": Map of HTTP status to count (0 for no response)
//   - "errors": Map of error type to count
//   - "events": Map of event name to count
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requestsCopy := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requestsCopy[k] = v
	}

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	statusesCopy := make(map[int]int64, len(m.statusCount))
	for k, v := range m.statusCount {
		statusesCopy[k] = v
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}

	eventsCopy := make(map[string]int64, len(m.eventCount))
	for k, v := range m.eventCount {
		eventsCopy[k] = v
	}

	return map[string]interface{}{
		"requests":  requestsCopy,
		"latencies": latenciesCopy,
		"statuses":  statusesCopy,
		"errors":    errorsCopy,
		"events":    eventsCopy,
	}
}

// CompositeObserver allows multiple observers to be combined into one.
// All observer methods are called on each child observer in order.
// If an observer panics, it's caught to prevent affecting other observers.
//
// Example:
//
//	composite := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    sdk.NewPrometheusObserver(),
//	)
//
//	config := sdk.DefaultConfig().
//	    WithObserver(composite)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

// each calls fn for every child, recovering from panics
func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				// Observer panicked, ignore
				_ = recover()
			}()
			fn(obs)
		}()
	}
}

// OnRequestStart notifies all observers of request start.
func (c *CompositeObserver) OnRequestStart(method, endpoint string) {
	c.each(func(o Observer) { o.OnRequestStart(method, endpoint) })
}

// OnRequestEnd notifies all observers of request completion.
func (c *CompositeObserver) OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error) {
	c.each(func(o Observer) { o.OnRequestEnd(method, endpoint, status, duration, err) })
}

// OnEvent notifies all observers
func (c *CompositeObserver) OnEvent(name string) {
	c.each(func(o Observer) { o.OnEvent(name) })
}

// OnError notifies all observers
func (c *CompositeObserver) OnError(err *Error) {
	c.each(func(o Observer) { o.OnError(err) })
}
