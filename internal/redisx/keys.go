package redisx

import "time"

const (
	// Availability cache: avail:{product_id}:{size} -> {"quantity":..,"reserved_quantity":..,"available":..}
	KeyAvailability = "avail:%s:%s"

	// Full order payload cache: order:{order_id}; refreshed on every mutation
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLAvailability = 30 * time.Second
	TTLOrderCache   = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
