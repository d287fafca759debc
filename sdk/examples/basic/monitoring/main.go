// Monitoring Example
// This example exposes SDK metrics for Prometheus and keeps an in-memory
// snapshot for a quick summary on exit.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/birbparty/birb-commerce/sdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	registry := prometheus.NewRegistry()
	snapshot := sdk.NewMetricsCollector()

	config := sdk.DefaultConfig().
		WithObserver(sdk.NewCompositeObserver(
			sdk.NewPrometheusObserverWithRegistry(registry),
			snapshot,
		)).
		WithEventCallback(func(name string) {
			log.Printf("event: %s", name)
		})
	if base := os.Getenv("COMMERCE_BASE_URL"); base != "" {
		config.WithBaseURL(base)
	}

	client, err := sdk.New(os.Getenv("COMMERCE_PUBLIC_KEY"), false, config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		log.Println("Metrics available at http://localhost:2112/metrics")
		if err := http.ListenAndServe(":2112", nil); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := client.Products.List(ctx, map[string]any{"limit": 1}); err != nil {
			log.Printf("list products: %v", err)
		}
		if _, err := client.Products.Retrieve(ctx, "prod_does_not_exist", nil); sdk.IsNotFound(err) {
			log.Printf("missing product reported as not found")
		}
		time.Sleep(500 * time.Millisecond)
	}

	metrics := snapshot.GetMetrics()
	fmt.Println("\n=== Summary ===")
	fmt.Printf("Requests: %v\n", metrics["requests"])
	fmt.Printf("Statuses: %v\n", metrics["statuses"])
	fmt.Printf("Errors:   %v\n", metrics["errors"])
	fmt.Printf("Events:   %v\n", metrics["events"])
}
