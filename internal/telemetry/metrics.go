package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the Prometheus collectors shared by the commerce services.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics (sandbox)
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	eventsReported      *prometheus.CounterVec

	// Relay metrics
	messagesProcessedTotal *prometheus.CounterVec
	batchSize              prometheus.Histogram
	flushDuration          prometheus.Histogram
	flushRetries           prometheus.Counter

	serviceUp prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry, together with
// the Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		Registry: registry,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		eventsReported: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "commerce_events_reported_total",
			Help: "Total number of events reported in API responses",
		}, []string{"event"}),

		messagesProcessedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_processed_total",
			Help: "Total number of event messages handled by the relay",
		}, []string{"status"}),

		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_batch_size",
			Help:    "Size of batches written to the event log",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_flush_duration_seconds",
			Help:    "Duration of event log writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		flushRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_flush_retries_total",
			Help: "Total number of retried event log writes",
		}),

		serviceUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "service_up",
			Help: "Whether the service is up (1) or down (0)",
		}),
	}
	m.serviceUp.Set(1)
	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordEventReported counts an event attached to a response
func (m *Metrics) RecordEventReported(event string) {
	m.eventsReported.WithLabelValues(event).Inc()
}

// RecordMessages counts relay messages by outcome ("stored", "duplicate", "invalid", "failed")
func (m *Metrics) RecordMessages(status string, n int) {
	m.messagesProcessedTotal.WithLabelValues(status).Add(float64(n))
}

// RecordFlush records one event log write
func (m *Metrics) RecordFlush(size int, duration time.Duration) {
	m.batchSize.Observe(float64(size))
	m.flushDuration.Observe(duration.Seconds())
}

// RecordFlushRetry counts a failed write that will be retried
func (m *Metrics) RecordFlushRetry() {
	m.flushRetries.Inc()
}

// SetServiceUp flips the service_up gauge
func (m *Metrics) SetServiceUp(up bool) {
	if up {
		m.serviceUp.Set(1)
		return
	}
	m.serviceUp.Set(0)
}

// initOTELMetrics installs an OTLP meter provider. The returned function
// flushes and stops it.
func initOTELMetrics(ctx context.Context, cfg *Config) (func(context.Context) error, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(cfg.MetricsInterval)*time.Second),
			),
		),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
