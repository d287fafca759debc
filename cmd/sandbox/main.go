package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/birbparty/birb-commerce/internal/sandbox"
	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	tel, err := telemetry.Init(ctx, telemetry.NewConfigFromEnv("commerce-sandbox"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize telemetry")
	}
	log := telemetry.L()

	cfg, err := sandbox.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	catalog, err := sandbox.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	log.WithField("merchant", catalog.Merchant.Name).Info("Catalog loaded")

	carts := sandbox.NewCartStore(catalog, cfg.CartTTL)
	handler := sandbox.NewHandler(catalog, carts, tel.Metrics)
	app := sandbox.NewApp(handler, tel.Metrics, cfg.PublicKey)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully")
		tel.Metrics.SetServiceUp(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Warn("Server forced to shutdown")
		}
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	tel.Metrics.SetServiceUp(true)
	log.WithField("addr", cfg.Addr()).Info("Commerce sandbox listening")
	if err := app.Listen(cfg.Addr()); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
