package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birbparty/birb-commerce/events"
	"github.com/birbparty/birb-commerce/internal/eventlog"
	"github.com/birbparty/birb-commerce/internal/relay"
	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.Init(ctx, telemetry.NewConfigFromEnv("commerce-relay"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize telemetry")
	}
	log := telemetry.L()

	relayConfig, err := relay.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Failed to load relay config")
	}

	dbConfig, err := eventlog.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Failed to load database config")
	}

	eventsConfig, err := events.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Failed to load NATS config")
	}
	eventsConfig.Logger = log

	db, err := eventlog.NewDB(ctx, dbConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer db.Close()

	store := eventlog.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("Failed to prepare event log schema")
	}
	log.Info("Connected to PostgreSQL")

	natsClient, err := events.NewNATSClient(eventsConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to NATS")
	}
	defer natsClient.Close()
	log.Info("Connected to NATS JetStream")

	r := relay.New(relayConfig, store, tel.Metrics, log)
	retention := relay.NewRetentionService(store, relayConfig, log)

	health := newHealthApp(r, db, natsClient, tel.Metrics)
	go func() {
		addr := fmt.Sprintf(":%d", relayConfig.HealthCheckPort)
		if err := health.Listen(addr); err != nil {
			log.WithError(err).Error("Health server stopped")
		}
	}()

	go retention.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	relayDone := make(chan error, 1)
	go func() {
		relayDone <- r.Run(ctx, natsClient)
	}()
	tel.Metrics.SetServiceUp(true)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutting down gracefully")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), relayConfig.FlushTimeout+5*time.Second)
		defer shutdownCancel()

		select {
		case err := <-relayDone:
			if err != nil {
				log.WithError(err).Warn("Relay stopped with error")
			}
			log.Info("Relay shutdown complete")
		case <-shutdownCtx.Done():
			log.Warn("Relay shutdown timeout")
		}

		_ = health.ShutdownWithContext(shutdownCtx)
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Telemetry shutdown failed")
		}

	case err := <-relayDone:
		if err != nil {
			log.WithError(err).Fatal("Relay error")
		}
	}
}

func newHealthApp(r *relay.Relay, db *eventlog.DB, nc *events.NATSClient, metrics *telemetry.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := fiber.Map{"postgres": "ok", "nats": "ok"}
		status := fiber.StatusOK

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Health(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = fiber.StatusServiceUnavailable
		}
		if err := nc.Health(); err != nil {
			checks["nats"] = err.Error()
			status = fiber.StatusServiceUnavailable
		}

		state := "healthy"
		if status != fiber.StatusOK {
			state = "unhealthy"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":  state,
			"service": "commerce-relay",
			"checks":  checks,
			"relay":   r.Stats(),
		})
	})
	app.Get("/metrics", metrics.MetricsHandler())

	return app
}
