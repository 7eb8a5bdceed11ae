package inventory

import (
	"strconv"
	"time"
)

// Record is the authoritative stock row for one (product, size) pair.
// Invariant: 0 <= ReservedQuantity <= Quantity after every committed operation.
type Record struct {
	ProductID        string    `json:"product_id"`
	Size             float64   `json:"size"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (r Record) Available() int { return r.Quantity - r.ReservedQuantity }

type Availability struct {
	Quantity         int `json:"quantity"`
	ReservedQuantity int `json:"reserved_quantity"`
	Available        int `json:"available"`
}

// SetItem is one line of an administrative quantity overwrite.
type SetItem struct {
	ProductID string  `json:"product_id"`
	Size      float64 `json:"size"`
	Quantity  int     `json:"quantity"`
}

// FormatSize renders a size the way it appears in cache keys and logs
// ("40" or "40.5", never "40.0").
func FormatSize(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}
