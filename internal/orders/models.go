package orders

import (
	"encoding/json"
	"time"
)

type Order struct {
	ID              string    `json:"id"`
	OrderNumber     string    `json:"order_number"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerPhone   string    `json:"customer_phone"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	TotalCents      int64     `json:"total_cents"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	StockReleased   bool      `json:"-"`
	StockCommitted  bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Items           []Item    `json:"items"`
}

// Item snapshots the product at order time; later catalog edits never touch it.
type Item struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Size          float64         `json:"size"`
	Quantity      int             `json:"quantity"`
	PriceCents    int64           `json:"price_cents"`
	Customization json.RawMessage `json:"customization,omitempty"`
	Product       *ProductRef     `json:"product,omitempty"`
}

// ProductRef is the live product summary attached to item payloads for reads.
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type LineInput struct {
	ProductID     string          `json:"product_id"`
	Size          float64         `json:"size"`
	Quantity      int             `json:"quantity"`
	Customization json.RawMessage `json:"customization,omitempty"`
}

type CreateRequest struct {
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	ShippingAddress string      `json:"shipping_address"`
	Notes           string      `json:"notes"`
	Items           []LineInput `json:"items"`
}
