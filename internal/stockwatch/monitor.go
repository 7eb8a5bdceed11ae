// Package stockwatch consumes order events and keeps derived stock state
// fresh: it drops stale availability cache entries and raises low-stock
// signals for sizes running out.
package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/inventory"
	kafkax "github.com/shoefactory/backend/internal/kafka"
	"github.com/shoefactory/backend/internal/metrics"
	"github.com/shoefactory/backend/internal/orders"
	"github.com/shoefactory/backend/internal/redisx"
)

type Availability interface {
	GetAvailability(ctx context.Context, productID string, size float64) (inventory.Availability, error)
}

type Monitor struct {
	Ledger    Availability
	Redis     *redis.Client
	Threshold int
	Log       *zap.Logger
}

// HandleOrderEvent is wired as the kafka consumer handler for both order
// topics; any event carrying item lines refreshes those (product, size) pairs.
func (m *Monitor) HandleOrderEvent(ctx context.Context, msg kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return err
	}

	var items []orders.ItemQty
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		items = p.Items
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		items = p.Items
	default:
		return nil
	}

	// dedup on event_id so redelivery does not re-log alerts
	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	if seen, _ := redisx.Exists(ctx, m.Redis, dkey); seen {
		return nil
	}
	_ = m.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	for _, it := range items {
		size := inventory.FormatSize(it.Size)
		_ = m.Redis.Del(ctx, fmt.Sprintf(redisx.KeyAvailability, it.ProductID, size)).Err()

		avail, err := m.Ledger.GetAvailability(ctx, it.ProductID, it.Size)
		if err != nil {
			continue // record may not exist anymore; nothing to report
		}
		if avail.Available <= m.Threshold {
			metrics.LowStockGauge.WithLabelValues(it.ProductID, size).Set(float64(avail.Available))
			m.Log.Warn("low stock",
				zap.String("product_id", it.ProductID),
				zap.String("size", size),
				zap.Int("available", avail.Available))
		}
	}
	return nil
}
