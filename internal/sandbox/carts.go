package sandbox

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/birbparty/birb-commerce/sdk"
	"github.com/google/uuid"
)

// CartStore keeps carts in memory. It is safe for concurrent use.
type CartStore struct {
	catalog *Catalog
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	carts map[string]*cart
}

type cart struct {
	id      string
	created time.Time
	updated time.Time
	items   []*sdk.LineItem
}

// StockError reports a request for more units than are available.
type StockError struct {
	ProductID string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d of %s available", e.Available, e.ProductID)
}

// NewCartStore creates a store whose carts expire ttl after their last update.
func NewCartStore(catalog *Catalog, ttl time.Duration) *CartStore {
	return &CartStore{
		catalog: catalog,
		ttl:     ttl,
		now:     time.Now,
		carts:   make(map[string]*cart),
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

// Create starts an empty cart.
func (s *CartStore) Create() sdk.CartData {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &cart{id: newID("cart_"), created: now, updated: now}
	s.carts[c.id] = c
	return s.render(c)
}

// Get returns a cart by id.
func (s *CartStore) Get(id string) (sdk.CartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return sdk.CartData{}, err
	}
	return s.render(c), nil
}

// Add puts quantity units of a product in the cart. Adding a product with the
// same options as an existing line raises that line's quantity.
func (s *CartStore) Add(id, productID string, quantity int, options map[string]string) (sdk.CartMutation, error) {
	product, err := s.catalog.Product(productID)
	if err != nil {
		return sdk.CartMutation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return sdk.CartMutation{}, err
	}

	var line *sdk.LineItem
	for _, item := range c.items {
		if item.ProductID == product.ID && sameOptions(item.SelectedOptions, options) {
			line = item
			break
		}
	}
	inCart := 0
	if line != nil {
		inCart = line.Quantity
	}
	if err := checkStock(product, inCart+quantity); err != nil {
		return sdk.CartMutation{}, err
	}

	if line == nil {
		line = &sdk.LineItem{
			ID:              newID("item_"),
			ProductID:       product.ID,
			Name:            product.Name,
			Price:           product.Price,
			SelectedOptions: options,
		}
		c.items = append(c.items, line)
	}
	line.Quantity += quantity
	line.LineTotal = s.catalog.Price(line.Price.Raw * float64(line.Quantity))

	return s.mutated(c, line), nil
}

// Update sets the quantity of a line. A quantity of zero removes it.
func (s *CartStore) Update(id, lineID string, quantity int) (sdk.CartMutation, error) {
	if quantity == 0 {
		return s.Remove(id, lineID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	idx, err := findLine(c, lineID)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	line := c.items[idx]
	product, err := s.catalog.Product(line.ProductID)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	if err := checkStock(product, quantity); err != nil {
		return sdk.CartMutation{}, err
	}

	line.Quantity = quantity
	line.LineTotal = s.catalog.Price(line.Price.Raw * float64(quantity))
	return s.mutated(c, line), nil
}

// Remove deletes a line from the cart.
func (s *CartStore) Remove(id, lineID string) (sdk.CartMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	idx, err := findLine(c, lineID)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	line := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return s.mutated(c, line), nil
}

// Empty removes every line from the cart.
func (s *CartStore) Empty(id string) (sdk.CartMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(id)
	if err != nil {
		return sdk.CartMutation{}, err
	}
	c.items = nil
	return s.mutated(c, nil), nil
}

// Delete discards the cart.
func (s *CartStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return err
	}
	delete(s.carts, id)
	return nil
}

// Len returns the number of live carts.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purge()
	return len(s.carts)
}

// lookup must be called with mu held. Expired carts are dropped on access.
func (s *CartStore) lookup(id string) (*cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, fmt.Errorf("cart %q: %w", id, ErrNotFound)
	}
	if s.ttl > 0 && s.now().After(c.updated.Add(s.ttl)) {
		delete(s.carts, id)
		return nil, fmt.Errorf("cart %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *CartStore) purge() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, c := range s.carts {
		if now.After(c.updated.Add(s.ttl)) {
			delete(s.carts, id)
		}
	}
}

func (s *CartStore) mutated(c *cart, line *sdk.LineItem) sdk.CartMutation {
	c.updated = s.now()
	m := sdk.CartMutation{Success: true, Cart: s.render(c)}
	if line != nil {
		copied := *line
		m.LineItem = &copied
	}
	return m
}

func (s *CartStore) render(c *cart) sdk.CartData {
	data := sdk.CartData{
		ID:        c.id,
		Created:   c.created.Unix(),
		Updated:   c.updated.Unix(),
		Currency:  s.catalog.Merchant.Currency.Code,
		LineItems: make([]sdk.LineItem, 0, len(c.items)),
	}
	if s.ttl > 0 {
		data.Expires = c.updated.Add(s.ttl).Unix()
	}

	subtotal := 0.0
	for _, item := range c.items {
		data.LineItems = append(data.LineItems, *item)
		data.TotalItems += item.Quantity
		subtotal += item.LineTotal.Raw
	}
	data.TotalUnique = len(c.items)
	data.Subtotal = s.catalog.Price(subtotal)
	return data
}

func findLine(c *cart, lineID string) (int, error) {
	for i, item := range c.items {
		if item.ID == lineID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("line item %q: %w", lineID, ErrNotFound)
}

func checkStock(p sdk.Product, quantity int) error {
	if p.Inventory.Managed && quantity > p.Inventory.Available {
		return &StockError{ProductID: p.ID, Available: p.Inventory.Available}
	}
	return nil
}

func sameOptions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if other, ok := b[k]; !ok || other != v {
			return false
		}
	}
	return true
}
