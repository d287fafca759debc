package sdk

// Price is a monetary amount as the API formats it.
type Price struct {
	Raw                 float64 `json:"raw" yaml:"raw"`
	Formatted           string  `json:"formatted" yaml:"formatted"`
	FormattedWithSymbol string  `json:"formatted_with_symbol" yaml:"formatted_with_symbol"`
	FormattedWithCode   string  `json:"formatted_with_code" yaml:"formatted_with_code"`
}

// Product is a catalog product.
type Product struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Permalink   string     `json:"permalink" yaml:"permalink"`
	Description string     `json:"description" yaml:"description"`
	SKU         string     `json:"sku,omitempty" yaml:"sku"`
	Price       Price      `json:"price" yaml:"price"`
	Inventory   Inventory  `json:"inventory" yaml:"inventory"`
	Categories  []Category `json:"categories,omitempty" yaml:"categories"`
	Active      bool       `json:"active" yaml:"active"`
	Created     int64      `json:"created" yaml:"created"`
}

// Inventory tracks product stock.
type Inventory struct {
	Managed   bool `json:"managed" yaml:"managed"`
	Available int  `json:"available" yaml:"available"`
}

// Category groups products.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Products    int    `json:"products" yaml:"-"`
}

// Merchant describes the store owner.
type Merchant struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"support_email" yaml:"support_email"`
	Currency struct {
		Symbol string `json:"symbol" yaml:"symbol"`
		Code   string `json:"code" yaml:"code"`
	} `json:"currency" yaml:"currency"`
}

// LineItem is one product entry in a cart.
type LineItem struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"product_id"`
	Name            string            `json:"name"`
	Quantity        int               `json:"quantity"`
	Price           Price             `json:"price"`
	LineTotal       Price             `json:"line_total"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// CartData is the cart representation returned by the carts endpoints.
type CartData struct {
	ID          string     `json:"id"`
	Created     int64      `json:"created"`
	Updated     int64      `json:"updated"`
	Expires     int64      `json:"expires"`
	TotalItems  int        `json:"total_items"`
	TotalUnique int        `json:"total_unique_items"`
	Subtotal    Price      `json:"subtotal"`
	Currency    string     `json:"currency"`
	LineItems   []LineItem `json:"line_items"`
}

// CartMutation is the body of add, update and remove responses.
type CartMutation struct {
	Success  bool      `json:"success"`
	LineItem *LineItem `json:"line_item,omitempty"`
	Cart     CartData  `json:"cart"`
}

// Pagination describes a page of a list response.
type Pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Meta wraps list response metadata.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// Page is a list response.
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}
