package sdk

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver exports SDK activity as Prometheus metrics. It is safe
// for concurrent use.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	config := sdk.DefaultConfig().
//	    WithObserver(sdk.NewPrometheusObserverWithRegistry(registry))
type PrometheusObserver struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	eventsTotal      *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// NewPrometheusObserver creates an observer on the default registerer.
func NewPrometheusObserver() *PrometheusObserver {
	return NewPrometheusObserverWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusObserverWithRegistry creates an observer using the supplied registerer.
func NewPrometheusObserverWithRegistry(registry prometheus.Registerer) *PrometheusObserver {
	return &PrometheusObserver{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_sdk_requests_total",
				Help: "Total number of commerce API requests made",
			},
			[]string{"method", "resource", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_sdk_request_duration_seconds",
				Help:    "Duration of commerce API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "resource"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "commerce_sdk_requests_in_flight",
				Help: "Number of commerce API requests currently in flight",
			},
			[]string{"method", "resource"},
		),
		eventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_sdk_events_total",
				Help: "Total number of events reported by the API",
			},
			[]string{"event"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_sdk_errors_total",
				Help: "Total number of failed commerce API requests",
			},
			[]string{"type"},
		),
	}
}

// resourceLabel keeps label cardinality bounded: "carts/cart_123/items"
// becomes "carts".
func resourceLabel(endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if i := strings.IndexAny(endpoint, "/?"); i >= 0 {
		endpoint = endpoint[:i]
	}
	if endpoint == "" {
		return "root"
	}
	return endpoint
}

// OnRequestStart tracks in-flight requests
func (p *PrometheusObserver) OnRequestStart(method, endpoint string) {
	p.requestsInFlight.WithLabelValues(method, resourceLabel(endpoint)).Inc()
}

// OnRequestEnd records count and duration
func (p *PrometheusObserver) OnRequestEnd(method, endpoint string, status int, duration time.Duration, err error) {
	resource := resourceLabel(endpoint)
	p.requestsInFlight.WithLabelValues(method, resource).Dec()
	p.requestsTotal.WithLabelValues(method, resource, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, resource).Observe(duration.Seconds())
}

// OnEvent counts reported events
func (p *PrometheusObserver) OnEvent(name string) {
	p.eventsTotal.WithLabelValues(name).Inc()
}

// OnError counts translated failures by type
func (p *PrometheusObserver) OnError(err *Error) {
	p.errorsTotal.WithLabelValues(err.Type.String()).Inc()
}
