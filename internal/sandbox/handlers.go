package sandbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/birbparty/birb-commerce/sdk"
	"github.com/gofiber/fiber/v2"
)

// Version is reported by the health and root endpoints
const Version = "1.0.0"

// Handler serves the commerce endpoints
type Handler struct {
	catalog   *Catalog
	carts     *CartStore
	metrics   *telemetry.Metrics
	startTime time.Time
}

// NewHandler creates a new handler instance
func NewHandler(catalog *Catalog, carts *CartStore, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		catalog:   catalog,
		carts:     carts,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// respond writes body as JSON, adding the reported event and any console
// output as reserved keys.
func (h *Handler) respond(c *fiber.Ctx, status int, body any, event string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	obj := sdk.NewObject()
	if err := json.Unmarshal(raw, obj); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	if event != "" {
		obj.Set("_event", event)
		if h.metrics != nil {
			h.metrics.RecordEventReported(event)
		}
	}
	if lines, ok := consoleLines(c); ok {
		obj.Set("_console", lines)
	}
	return c.Status(status).JSON(obj)
}

// ListProducts handles GET /v1/products
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	var q ProductQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}

	page := h.catalog.Products(q)
	consolef(c, "Matched %d products", page.Meta.Pagination.Total)
	return h.respond(c, fiber.StatusOK, page, "")
}

// GetProduct handles GET /v1/products/:id
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.Product(c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, product, "")
}

// ListCategories handles GET /v1/categories
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	var q ListRequest
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, h.catalog.Categories(q.Limit, q.Page), "")
}

// GetCategory handles GET /v1/categories/:id
func (h *Handler) GetCategory(c *fiber.Ctx) error {
	category, err := h.catalog.Category(c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, category, "")
}

// GetMerchant handles GET /v1/merchants
func (h *Handler) GetMerchant(c *fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, h.catalog.Merchant, "")
}

// CreateCart handles GET /v1/carts
func (h *Handler) CreateCart(c *fiber.Ctx) error {
	cart := h.carts.Create()
	consolef(c, "Created cart %s", cart.ID)
	return h.respond(c, fiber.StatusOK, cart, "Cart.Created")
}

// GetCart handles GET /v1/carts/:id
func (h *Handler) GetCart(c *fiber.Ctx) error {
	cart, err := h.carts.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, cart, "")
}

// AddItem handles POST /v1/carts/:id
func (h *Handler) AddItem(c *fiber.Ctx) error {
	req := AddItemRequest{Quantity: 1}
	if err := bindForm(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.carts.Add(c.Params("id"), req.ID, req.Quantity, req.Options)
	if err != nil {
		return err
	}
	consolef(c, "Added %d x %s to cart %s", req.Quantity, req.ID, result.Cart.ID)
	return h.respond(c, fiber.StatusOK, result, "Cart.Item.Added")
}

// UpdateItem handles PUT /v1/carts/:id/items/:line
func (h *Handler) UpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := bindForm(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.carts.Update(c.Params("id"), c.Params("line"), *req.Quantity)
	if err != nil {
		return err
	}
	event := "Cart.Item.Updated"
	if *req.Quantity == 0 {
		event = "Cart.Item.Removed"
	}
	return h.respond(c, fiber.StatusOK, result, event)
}

// RemoveItem handles DELETE /v1/carts/:id/items/:line
func (h *Handler) RemoveItem(c *fiber.Ctx) error {
	result, err := h.carts.Remove(c.Params("id"), c.Params("line"))
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, result, "Cart.Item.Removed")
}

// EmptyCart handles DELETE /v1/carts/:id/items
func (h *Handler) EmptyCart(c *fiber.Ctx) error {
	result, err := h.carts.Empty(c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, fiber.StatusOK, result, "Cart.Emptied")
}

// DeleteCart handles DELETE /v1/carts/:id
func (h *Handler) DeleteCart(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.carts.Delete(id); err != nil {
		return err
	}
	consolef(c, "Deleted cart %s", id)
	return h.respond(c, fiber.StatusOK, fiber.Map{"success": true}, "Cart.Deleted")
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Service: "commerce-sandbox",
		Version: Version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Carts:   h.carts.Len(),
		Checks: map[string]string{
			"catalog": fmt.Sprintf("%d products", len(h.catalog.products)),
		},
	})
}
