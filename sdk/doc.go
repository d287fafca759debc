// Package sdk is a client library for a hosted commerce API. It is meant for
// code that runs in front of shoppers and authenticates with a public key:
// storefronts, kiosks, checkout widgets and command line tools.
//
// # Features
//
// The SDK provides:
//   - A single request pipeline for every endpoint, with typed helpers for
//     products, categories, the merchant and the cart
//   - Nested request bodies flattened into bracket-keyed multipart forms
//   - Response normalization: the "_event" and "_console" side channels are
//     removed from the body and routed to an event emitter and debug sink
//   - One error shape (*Error) for every HTTP or network failure
//   - Context support for cancellation and timeouts
//   - Pluggable observers, including Prometheus metrics and OpenTelemetry spans
//
// # Basic Usage
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/birbparty/birb-commerce/sdk"
//	)
//
//	func main() {
//	    client, err := sdk.New("pk_test_123", false, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer client.Close()
//
//	    ctx := context.Background()
//
//	    page, err := sdk.RequestAs[sdk.Page[sdk.Product]](ctx, client, "products", "GET",
//	        map[string]any{"limit": 10})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, p := range page.Data {
//	        log.Println(p.Name, p.Price.FormattedWithSymbol)
//	    }
//	}
//
// # Request Bodies
//
// GET requests carry their data as query parameters. Every other method
// sends an encoded multipart form in which nesting is expressed in the key:
//
//	client.Request(ctx, "carts/cart_123", "POST", map[string]any{
//	    "id":       "prod_123",
//	    "quantity": 1,
//	    "options":  map[string]any{"vgrp_size": "optn_large"},
//	})
//	// id=prod_123, quantity=1, options[vgrp_size]=optn_large
//
// Plain maps are encoded in sorted key order. Use an *Object when field order
// matters on the wire.
//
// # Events
//
// Responses may name a business event ("Cart.Item.Added"). The client emits
// it once per response, after stripping it from the body. By default events
// go to events.Default(), a process-wide bus:
//
//	events.Default().Subscribe("commerce.Cart.>", func(n *events.Notification) {
//	    refreshCartBadge()
//	})
//
// Supply WithEventCallback or WithEventEmitter to route them elsewhere, for
// example to an *events.NATSClient.
//
// # Error Handling
//
//	_, err := client.Products.Retrieve(ctx, "prod_missing", nil)
//	if sdk.IsNotFound(err) {
//	    return nil
//	}
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    log.Printf("%d %s: %v", sdkErr.StatusCode, sdkErr.StatusText, sdkErr.Data)
//	}
//
// Failures that never produced a response report StatusCode 0 with the
// status text "Network Error" or "Timeout".
//
// # Debugging
//
// With debug enabled, "_console" entries and a summary of every failed
// request are written to the DebugSink, by default through logrus.
//
// # Thread Safety
//
// A Client is safe for concurrent use. Concurrent requests share nothing but
// the configuration and may complete in any order.
package sdk
