package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/birbparty/birb-commerce/events"
	"github.com/birbparty/birb-commerce/sdk"
)

func main() {
	config := sdk.DefaultConfig().
		WithTimeout(10 * time.Second)
	if base := os.Getenv("COMMERCE_BASE_URL"); base != "" {
		config.WithBaseURL(base)
	}

	client, err := sdk.New(os.Getenv("COMMERCE_PUBLIC_KEY"), true, config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	// Watch cart events on the process-wide bus
	sub := events.Default().Subscribe("commerce.Cart.>", func(n *events.Notification) {
		fmt.Printf("  event: %s\n", n.Event)
	})
	defer sub.Unsubscribe()

	ctx := context.Background()

	fmt.Println("--- Merchant ---")
	merchant, err := sdk.RequestAs[sdk.Merchant](ctx, client, "merchants", "GET", nil)
	if err != nil {
		log.Fatalf("Failed to load merchant: %v", err)
	}
	fmt.Printf("✓ %s (%s)\n", merchant.Name, merchant.Currency.Code)

	fmt.Println("\n--- Products ---")
	page, err := sdk.RequestAs[sdk.Page[sdk.Product]](ctx, client, "products", "GET", map[string]any{"limit": 5})
	if err != nil {
		log.Fatalf("Failed to list products: %v", err)
	}
	for _, p := range page.Data {
		fmt.Printf("✓ %-30s %s\n", p.Name, p.Price.FormattedWithSymbol)
	}
	if len(page.Data) == 0 {
		fmt.Println("No products, nothing to add to the cart")
		return
	}

	fmt.Println("\n--- Cart ---")
	result, err := client.Cart.Add(ctx, page.Data[0].ID, 2, nil)
	if err != nil {
		var sdkErr *sdk.Error
		if errors.As(err, &sdkErr) {
			log.Fatalf("Add to cart failed: %d %s %v", sdkErr.StatusCode, sdkErr.StatusText, sdkErr.Data)
		}
		log.Fatalf("Add to cart failed: %v", err)
	}
	mutation, err := sdk.DecodeAs[sdk.CartMutation](result)
	if err != nil {
		log.Fatalf("Unexpected cart response: %v", err)
	}
	fmt.Printf("✓ Cart %s holds %d items, subtotal %s\n",
		mutation.Cart.ID, mutation.Cart.TotalItems, mutation.Cart.Subtotal.FormattedWithSymbol)

	if _, err := client.Cart.Empty(ctx); err != nil {
		log.Fatalf("Failed to empty cart: %v", err)
	}
	fmt.Println("✓ Cart emptied")

	events.Default().Wait()
}
