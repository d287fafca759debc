package sandbox

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/birbparty/birb-commerce/sdk"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrNotFound is returned for unknown products, categories and carts
var ErrNotFound = errors.New("not found")

// Catalog is the read-only store data served by the sandbox.
type Catalog struct {
	Merchant   sdk.Merchant
	categories []sdk.Category
	products   []sdk.Product
}

type catalogFile struct {
	Merchant   sdk.Merchant     `yaml:"merchant"`
	Categories []sdk.Category   `yaml:"categories"`
	Products   []productFixture `yaml:"products"`
}

// productFixture is the YAML shape of a product: prices are plain numbers
// and categories are referenced by slug.
type productFixture struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Permalink   string   `yaml:"permalink"`
	Description string   `yaml:"description"`
	SKU         string   `yaml:"sku"`
	Price       float64  `yaml:"price"`
	Inventory   *int     `yaml:"inventory"`
	Categories  []string `yaml:"categories"`
}

func (p productFixture) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Permalink, validation.Required),
		validation.Field(&p.Price, validation.Min(0.0)),
	)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("sandbox: built-in catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML catalog from path, or returns the built-in one
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := validation.Validate(file.Merchant.Currency.Code, validation.Required); err != nil {
		return nil, fmt.Errorf("merchant currency code: %w", err)
	}

	c := &Catalog{Merchant: file.Merchant}
	bySlug := make(map[string]int, len(file.Categories))
	for _, cat := range file.Categories {
		if cat.Slug == "" {
			return nil, fmt.Errorf("category %q has no slug", cat.ID)
		}
		bySlug[cat.Slug] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	seen := make(map[string]bool, len(file.Products))
	for i, fx := range file.Products {
		if err := fx.Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if seen[fx.ID] {
			return nil, fmt.Errorf("duplicate product id %q", fx.ID)
		}
		seen[fx.ID] = true

		product := sdk.Product{
			ID:          fx.ID,
			Name:        fx.Name,
			Permalink:   fx.Permalink,
			Description: fx.Description,
			SKU:         fx.SKU,
			Price:       c.Price(fx.Price),
			Active:      true,
			Created:     created + int64(i)*3600,
		}
		if fx.Inventory != nil {
			product.Inventory = sdk.Inventory{Managed: true, Available: *fx.Inventory}
		}
		for _, slug := range fx.Categories {
			idx, ok := bySlug[slug]
			if !ok {
				return nil, fmt.Errorf("product %q references unknown category %q", fx.ID, slug)
			}
			c.categories[idx].Products++
			product.Categories = append(product.Categories, sdk.Category{
				ID:   c.categories[idx].ID,
				Slug: slug,
				Name: c.categories[idx].Name,
			})
		}
		c.products = append(c.products, product)
	}
	return c, nil
}

// Price formats amount in the merchant currency.
func (c *Catalog) Price(amount float64) sdk.Price {
	formatted := fmt.Sprintf("%.2f", amount)
	return sdk.Price{
		Raw:                 amount,
		Formatted:           formatted,
		FormattedWithSymbol: c.Merchant.Currency.Symbol + formatted,
		FormattedWithCode:   formatted + " " + c.Merchant.Currency.Code,
	}
}

// ProductQuery filters and orders a product listing.
type ProductQuery struct {
	CategorySlug  string `json:"category_slug"`
	Query         string `json:"query"`
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
	Limit         int    `json:"limit"`
	Page          int    `json:"page"`
}

// Validate checks the paging and sort options
func (q ProductQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(200)),
		validation.Field(&q.Page, validation.Min(0)),
		validation.Field(&q.SortBy, validation.In("", "name", "price", "created")),
		validation.Field(&q.SortDirection, validation.In("", "asc", "desc")),
	)
}

// Products returns one page of products matching q.
func (c *Catalog) Products(q ProductQuery) sdk.Page[sdk.Product] {
	var matched []sdk.Product
	for _, p := range c.products {
		if q.CategorySlug != "" && !inCategory(p, q.CategorySlug) {
			continue
		}
		if q.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Query)) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, q.SortBy, q.SortDirection == "desc")
	return paginate(matched, q.Limit, q.Page)
}

func inCategory(p sdk.Product, slug string) bool {
	for _, cat := range p.Categories {
		if cat.Slug == slug {
			return true
		}
	}
	return false
}

func sortProducts(products []sdk.Product, by string, desc bool) {
	less := func(a, b sdk.Product) bool { return a.Created < b.Created }
	switch by {
	case "name":
		less = func(a, b sdk.Product) bool { return a.Name < b.Name }
	case "price":
		less = func(a, b sdk.Product) bool { return a.Price.Raw < b.Price.Raw }
	}
	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

// Product finds a product by id or permalink.
func (c *Catalog) Product(idOrPermalink string) (sdk.Product, error) {
	for _, p := range c.products {
		if p.ID == idOrPermalink || p.Permalink == idOrPermalink {
			return p, nil
		}
	}
	return sdk.Product{}, fmt.Errorf("product %q: %w", idOrPermalink, ErrNotFound)
}

// Categories returns every category.
func (c *Catalog) Categories(limit, page int) sdk.Page[sdk.Category] {
	return paginate(c.categories, limit, page)
}

// Category finds a category by id or slug.
func (c *Catalog) Category(idOrSlug string) (sdk.Category, error) {
	for _, cat := range c.categories {
		if cat.ID == idOrSlug || cat.Slug == idOrSlug {
			return cat, nil
		}
	}
	return sdk.Category{}, fmt.Errorf("category %q: %w", idOrSlug, ErrNotFound)
}

const defaultPageSize = 20

func paginate[T any](items []T, limit, page int) sdk.Page[T] {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	data := make([]T, end-start)
	copy(data, items[start:end])
	return sdk.Page[T]{
		Data: data,
		Meta: sdk.Meta{Pagination: sdk.Pagination{
			Total:       total,
			Count:       len(data),
			PerPage:     limit,
			CurrentPage: page,
			TotalPages:  (total + limit - 1) / limit,
		}},
	}
}
