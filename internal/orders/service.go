package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/catalog"
	"github.com/shoefactory/backend/internal/inventory"
	kafkax "github.com/shoefactory/backend/internal/kafka"
	"github.com/shoefactory/backend/internal/metrics"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidInput      = errors.New("invalid order input")
	ErrInvalidTransition = errors.New("illegal status transition")
)

// Ledger is the slice of the inventory ledger the workflow needs. Reserve must
// be atomic per (product, size): checking availability and incrementing the
// hold may not be separate steps.
type Ledger interface {
	Reserve(ctx context.Context, productID string, size float64, qty int) error
	Release(ctx context.Context, productID string, size float64, qty int) error
	Commit(ctx context.Context, productID string, size float64, qty int) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, status Status, page, limit int) ([]Order, int, error)
	SetStatus(ctx context.Context, id string, st Status) error
	ClaimStockCommit(ctx context.Context, id string, st Status) (bool, error)
	ClaimStockRelease(ctx context.Context, id string, st Status) (bool, error)
}

// Publisher matches the kafka producer; nil publishers disable events.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store   Store
	Catalog Catalog
	Ledger  Ledger
	Created Publisher // shop.order.created
	Changed Publisher // shop.order.status
	Name    string    // producer name stamped on envelopes
	Log     *zap.Logger
}

// CreateOrder turns a cart into a persisted pending order with reserved
// stock. Reservation runs as a compensating saga: each line is held via the
// ledger's atomic conditional reserve, and any failure afterwards releases
// every line already held, so a failed call leaves inventory exactly as it
// found it.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (Order, error) {
	if err := validateCreate(req); err != nil {
		return Order{}, err
	}

	orderID := uuid.NewString()
	var total int64
	items := make([]Item, 0, len(req.Items))
	for _, line := range req.Items {
		p, err := s.Catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		if err != nil {
			return Order{}, err
		}
		if !p.IsActive {
			return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		total += p.PriceCents * int64(line.Quantity)
		items = append(items, Item{
			ID:            uuid.NewString(),
			OrderID:       orderID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			Size:          line.Size,
			Quantity:      line.Quantity,
			PriceCents:    p.PriceCents,
			Customization: line.Customization,
		})
	}

	reserved := make([]Item, 0, len(items))
	rollback := func() {
		for _, it := range reserved {
			if err := s.Ledger.Release(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
				s.Log.Error("rollback release failed",
					zap.String("order_id", orderID),
					zap.String("product_id", it.ProductID),
					zap.Float64("size", it.Size),
					zap.Error(err))
			}
		}
	}

	for _, it := range items {
		if err := s.Ledger.Reserve(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
			rollback()
			if errors.Is(err, inventory.ErrInsufficientStock) {
				metrics.ReservationRejectsTotal.Inc()
				return Order{}, fmt.Errorf("%w: product %s size %s",
					inventory.ErrInsufficientStock, it.ProductID, inventory.FormatSize(it.Size))
			}
			return Order{}, err
		}
		reserved = append(reserved, it)
	}

	o := Order{
		ID:              orderID,
		OrderNumber:     NewOrderNumber(),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		TotalCents:      total,
		Status:          StatusPending,
		Notes:           req.Notes,
		Items:           items,
	}
	if err := s.Store.CreateOrder(ctx, &o); err != nil {
		rollback()
		return Order{}, err
	}

	metrics.OrdersCreatedTotal.Inc()
	s.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int64("total_cents", o.TotalCents),
		zap.Int("lines", len(o.Items)))

	s.publish(s.Created, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalCents:  o.TotalCents,
		Items:       toItemQty(o.Items),
	})
	return o, nil
}

// UpdateStatus applies one legal transition. Stock effects are idempotent:
// the release/commit is claimed on the order row first, so re-running a
// terminal transition can never adjust the ledger twice.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (Order, error) {
	if !ValidStatus(next) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, next) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	switch next {
	case StatusCancelled:
		claimed, err := s.Store.ClaimStockRelease(ctx, id, next)
		if err != nil {
			return Order{}, err
		}
		if claimed {
			for _, it := range o.Items {
				if err := s.Ledger.Release(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
					s.Log.Error("release on cancel failed",
						zap.String("order_id", id),
						zap.String("product_id", it.ProductID),
						zap.Error(err))
				}
			}
		}
	case StatusDelivered:
		claimed, err := s.Store.ClaimStockCommit(ctx, id, next)
		if err != nil {
			return Order{}, err
		}
		if claimed {
			for _, it := range o.Items {
				if err := s.Ledger.Commit(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
					s.Log.Error("commit on delivery failed",
						zap.String("order_id", id),
						zap.String("product_id", it.ProductID),
						zap.Error(err))
				}
			}
		}
	default:
		if err := s.Store.SetStatus(ctx, id, next); err != nil {
			return Order{}, err
		}
	}

	metrics.OrderStatusTotal.WithLabelValues(string(next)).Inc()
	s.Log.Info("order status updated",
		zap.String("order_id", id),
		zap.String("from", string(o.Status)),
		zap.String("to", string(next)))

	updated, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	s.publish(s.Changed, EventOrderStatusChanged, id, OrderStatusChangedPayload{
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Status:      updated.Status,
		Items:       toItemQty(updated.Items),
	})
	return updated, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, status Status, page, limit int) ([]Order, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.Store.ListOrders(ctx, status, page, limit)
}

func (s *Service) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.CustomerName == "":
		return fmt.Errorf("%w: customer_name is required", ErrInvalidInput)
	case req.CustomerEmail == "":
		return fmt.Errorf("%w: customer_email is required", ErrInvalidInput)
	case req.CustomerPhone == "":
		return fmt.Errorf("%w: customer_phone is required", ErrInvalidInput)
	case len(req.Items) == 0:
		return fmt.Errorf("%w: items must not be empty", ErrInvalidInput)
	}
	for i, it := range req.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: items[%d].product_id is required", ErrInvalidInput, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrInvalidInput, i)
		}
		if it.Size <= 0 {
			return fmt.Errorf("%w: items[%d].size must be positive", ErrInvalidInput, i)
		}
	}
	return nil
}

func toItemQty(items []Item) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, Size: it.Size, Qty: it.Quantity})
	}
	return out
}
