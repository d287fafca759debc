package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/birbparty/birb-commerce/storage"
)

// CartStorageKey is the storage key holding the current cart id
const CartStorageKey = "cart_id"

// CartLifetime is how long a stored cart id is reused
const CartLifetime = 30 * 24 * time.Hour

// Products lists and retrieves catalog products.
type Products struct {
	client *Client
}

// List returns a page of products. params are sent as query parameters,
// for example {"limit": 25, "category_slug": "shoes"}.
func (p *Products) List(ctx context.Context, params any) (*Result, error) {
	return p.client.Request(ctx, "products", http.MethodGet, params)
}

// Retrieve returns a single product by id or permalink.
func (p *Products) Retrieve(ctx context.Context, id string, params any) (*Result, error) {
	return p.client.Request(ctx, "products/"+url.PathEscape(id), http.MethodGet, params)
}

// Categories lists and retrieves product categories.
type Categories struct {
	client *Client
}

// List returns every category
func (c *Categories) List(ctx context.Context, params any) (*Result, error) {
	return c.client.Request(ctx, "categories", http.MethodGet, params)
}

// Retrieve returns a single category by id or slug
func (c *Categories) Retrieve(ctx context.Context, id string, params any) (*Result, error) {
	return c.client.Request(ctx, "categories/"+url.PathEscape(id), http.MethodGet, params)
}

// Merchants describes the store.
type Merchants struct {
	client *Client
}

// About returns the merchant the public key belongs to
func (m *Merchants) About(ctx context.Context) (*Result, error) {
	return m.client.Request(ctx, "merchants", http.MethodGet, nil)
}

// Cart manages the shopper's cart. The cart id is kept in the client's
// storage and a new cart is created on first use.
//
// Example:
//
//	result, err := client.Cart.Add(ctx, "prod_123", 2, map[string]any{
//	    "vgrp_size": "optn_large",
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Event()) // Cart.Item.Added
type Cart struct {
	client *Client
}

// ID returns the stored cart id, creating a cart when there is none.
func (c *Cart) ID(ctx context.Context) (string, error) {
	id, err := c.client.storage.Get(ctx, CartStorageKey)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to read cart id: %w", err)
	}

	result, err := c.Refresh(ctx)
	if err != nil {
		return "", err
	}
	var cart CartData
	if err := result.Decode(&cart); err != nil {
		return "", fmt.Errorf("failed to decode cart: %w", err)
	}
	return cart.ID, nil
}

// Refresh creates a new cart and stores its id.
func (c *Cart) Refresh(ctx context.Context) (*Result, error) {
	result, err := c.client.Request(ctx, "carts", http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var cart CartData
	if err := result.Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if cart.ID == "" {
		return nil, fmt.Errorf("cart response carried no id")
	}
	if err := c.client.storage.Set(ctx, CartStorageKey, cart.ID, CartLifetime); err != nil {
		return nil, fmt.Errorf("failed to store cart id: %w", err)
	}
	return result, nil
}

// Retrieve returns the current cart.
func (c *Cart) Retrieve(ctx context.Context) (*Result, error) {
	return c.request(ctx, "", http.MethodGet, nil)
}

// Add adds quantity of a product to the cart. options maps variant group
// ids to option ids and may be nil.
func (c *Cart) Add(ctx context.Context, productID string, quantity int, options any) (*Result, error) {
	if quantity <= 0 {
		quantity = 1
	}
	data := NewObject().
		Set("id", productID).
		Set("quantity", quantity)
	if options != nil {
		data.Set("options", options)
	}
	return c.request(ctx, "", http.MethodPost, data)
}

// Update changes a line item, for example {"quantity": 3}.
func (c *Cart) Update(ctx context.Context, lineID string, data any) (*Result, error) {
	return c.request(ctx, "/items/"+url.PathEscape(lineID), http.MethodPut, data)
}

// Remove deletes a line item.
func (c *Cart) Remove(ctx context.Context, lineID string) (*Result, error) {
	return c.request(ctx, "/items/"+url.PathEscape(lineID), http.MethodDelete, nil)
}

// Empty removes every line item.
func (c *Cart) Empty(ctx context.Context) (*Result, error) {
	return c.request(ctx, "/items", http.MethodDelete, nil)
}

// Delete deletes the cart and forgets its id.
func (c *Cart) Delete(ctx context.Context) (*Result, error) {
	result, err := c.request(ctx, "", http.MethodDelete, nil)
	if err != nil {
		return nil, err
	}
	if err := c.client.storage.Delete(ctx, CartStorageKey); err != nil {
		return nil, fmt.Errorf("failed to forget cart id: %w", err)
	}
	return result, nil
}

func (c *Cart) request(ctx context.Context, suffix, method string, data any) (*Result, error) {
	id, err := c.ID(ctx)
	if err != nil {
		return nil, err
	}
	return c.client.Request(ctx, "carts/"+url.PathEscape(id)+suffix, method, data)
}
