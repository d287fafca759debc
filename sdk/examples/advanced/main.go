// Event forwarding example
// Cart events reported by the API are published to NATS JetStream so other
// services (see cmd/relay) can react to them.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/birbparty/birb-commerce/events"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/birbparty/birb-commerce/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	natsConfig, err := events.NewConfigFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Invalid NATS configuration")
	}
	natsConfig.Logger = logger

	nc, err := events.NewNATSClient(natsConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to NATS")
	}
	defer nc.Close()

	// Keep the cart id across runs
	storageConfig, err := storage.NewConfigFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Invalid storage configuration")
	}
	store, err := storage.Open(storageConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer store.Close()

	config, err := sdk.ConfigFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Invalid client configuration")
	}
	config.WithLogger(logger).
		WithEventEmitter(nc).
		WithStorage(store)

	client, err := sdk.New("", false, config)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create client")
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cartID, err := client.Cart.ID(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to resolve cart")
	}
	logger.WithField("cart_id", cartID).Info("Using cart")

	products, err := sdk.RequestAs[sdk.Page[sdk.Product]](ctx, client, "products", "GET", map[string]any{"limit": 3})
	if err != nil {
		logger.WithError(err).Fatal("Failed to list products")
	}
	for _, p := range products.Data {
		if _, err := client.Cart.Add(ctx, p.ID, 1, nil); err != nil {
			logger.WithError(err).WithField("product_id", p.ID).Warn("Add to cart failed")
		}
	}

	cart, err := client.Cart.Retrieve(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to retrieve cart")
	}
	data, _ := sdk.DecodeAs[sdk.CartData](cart)
	logger.WithFields(logrus.Fields{
		"cart_id":     data.ID,
		"total_items": data.TotalItems,
		"subtotal":    data.Subtotal.FormattedWithSymbol,
	}).Info("Cart ready")
}
