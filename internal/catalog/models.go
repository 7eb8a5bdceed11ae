package catalog

import "time"

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	Season       string    `json:"season,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var validSeasons = map[string]bool{
	"":           true,
	"summer":     true,
	"winter":     true,
	"spring":     true,
	"autumn":     true,
	"all-season": true,
}

func ValidSeason(s string) bool { return validSeasons[s] }

type Product struct {
	ID             string      `json:"id"`
	CategoryID     string      `json:"category_id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	Description    string      `json:"description,omitempty"`
	PriceCents     int64       `json:"price_cents"`
	DiscountCents  *int64      `json:"discount_cents,omitempty"`
	SKU            string      `json:"sku,omitempty"`
	IsActive       bool        `json:"is_active"`
	IsCustomizable bool        `json:"is_customizable"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Category       *Category   `json:"category,omitempty"`
	Images         []Image     `json:"images,omitempty"`
	Inventory      []SizeStock `json:"inventory,omitempty"`
}

type Image struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	ImageURL  string    `json:"image_url"`
	AltText   string    `json:"alt_text,omitempty"`
	SortOrder int       `json:"sort_order"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}

// SizeStock is the per-size stock summary embedded in product payloads.
type SizeStock struct {
	Size             float64 `json:"size"`
	Quantity         int     `json:"quantity"`
	ReservedQuantity int     `json:"reserved_quantity"`
}

type ProductFilter struct {
	CategoryID    string
	Season        string
	Search        string
	MinPriceCents *int64
	MaxPriceCents *int64
	Page          int
	Limit         int
}
