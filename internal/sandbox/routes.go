package sandbox

import (
	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// NewApp builds the sandbox fiber app with middleware and routes.
func NewApp(handler *Handler, metrics *telemetry.Metrics, publicKey string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "commerce-sandbox",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
		BodyLimit:             4 * 1024 * 1024,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Authorization, X-Commerce-Agent, " + HeaderDebug,
	}))
	app.Use(telemetry.FiberLoggingMiddleware())
	if metrics != nil {
		app.Use(telemetry.FiberMetricsMiddleware(metrics))
	}

	SetupRoutes(app, handler, metrics, publicKey)
	return app
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, handler *Handler, metrics *telemetry.Metrics, publicKey string) {
	// Health and metrics endpoints (no auth required)
	app.Get("/health", handler.Health)
	if metrics != nil {
		app.Get("/metrics", metrics.MetricsHandler())
	}

	v1 := app.Group("/v1", RequireAPIKey(publicKey), Console())

	v1.Get("/products", handler.ListProducts)
	v1.Get("/products/:id", handler.GetProduct)
	v1.Get("/categories", handler.ListCategories)
	v1.Get("/categories/:id", handler.GetCategory)
	v1.Get("/merchants", handler.GetMerchant)

	carts := v1.Group("/carts")
	carts.Get("/", handler.CreateCart)
	carts.Get("/:id", handler.GetCart)
	carts.Post("/:id", handler.AddItem)
	carts.Delete("/:id", handler.DeleteCart)
	carts.Delete("/:id/items", handler.EmptyCart)
	carts.Put("/:id/items/:line", handler.UpdateItem)
	carts.Delete("/:id/items/:line", handler.RemoveItem)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "commerce-sandbox",
			"version": Version,
			"status":  "running",
			"endpoints": fiber.Map{
				"products":   "GET /v1/products, GET /v1/products/:id",
				"categories": "GET /v1/categories, GET /v1/categories/:id",
				"merchants":  "GET /v1/merchants",
				"carts":      "GET /v1/carts, GET|POST|DELETE /v1/carts/:id, DELETE /v1/carts/:id/items, PUT|DELETE /v1/carts/:id/items/:line",
				"health":     "GET /health",
				"metrics":    "GET /metrics",
			},
		})
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).
			JSON(NewErrorResponse(fiber.StatusNotFound, ErrTypeNotFound, "Route not found"))
	})
}
