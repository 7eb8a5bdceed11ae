package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/catalog"
	"github.com/shoefactory/backend/internal/inventory"
)

// ---- fakes ----

type stock struct{ qty, reserved int }

type memLedger struct {
	mu   sync.Mutex
	recs map[string]*stock
}

func newMemLedger() *memLedger { return &memLedger{recs: map[string]*stock{}} }

func ledgerKey(productID string, size float64) string {
	return fmt.Sprintf("%s|%s", productID, inventory.FormatSize(size))
}

func (l *memLedger) put(productID string, size float64, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs[ledgerKey(productID, size)] = &stock{qty: qty}
}

func (l *memLedger) at(productID string, size float64) stock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.recs[ledgerKey(productID, size)]; ok {
		return *s
	}
	return stock{}
}

func (l *memLedger) Reserve(_ context.Context, productID string, size float64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.recs[ledgerKey(productID, size)]
	if !ok || s.qty-s.reserved < qty {
		return inventory.ErrInsufficientStock
	}
	s.reserved += qty
	return nil
}

func (l *memLedger) Release(_ context.Context, productID string, size float64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.recs[ledgerKey(productID, size)]; ok {
		s.reserved -= qty
		if s.reserved < 0 {
			s.reserved = 0
		}
	}
	return nil
}

func (l *memLedger) Commit(_ context.Context, productID string, size float64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.recs[ledgerKey(productID, size)]
	if !ok || s.reserved < qty || s.qty < qty {
		return inventory.ErrConflict
	}
	s.qty -= qty
	s.reserved -= qty
	return nil
}

// invariantOK reports whether 0 <= reserved <= quantity holds everywhere.
func (l *memLedger) invariantOK() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.recs {
		if s.reserved < 0 || s.reserved > s.qty {
			return false
		}
	}
	return true
}

type memCatalog struct{ products map[string]catalog.Product }

func (c *memCatalog) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type memStore struct {
	mu         sync.Mutex
	orders     map[string]Order
	failCreate bool
}

func newMemStore() *memStore { return &memStore{orders: map[string]Order{}} }

func (s *memStore) CreateOrder(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("store down")
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) ListOrders(_ context.Context, status Status, page, limit int) ([]Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (s *memStore) SetStatus(_ context.Context, id string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = st
	s.orders[id] = o
	return nil
}

func (s *memStore) ClaimStockCommit(_ context.Context, id string, st Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.StockCommitted {
		return false, nil
	}
	o.Status = st
	o.StockCommitted = true
	s.orders[id] = o
	return true, nil
}

func (s *memStore) ClaimStockRelease(_ context.Context, id string, st Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.StockReleased {
		return false, nil
	}
	o.Status = st
	o.StockReleased = true
	s.orders[id] = o
	return true, nil
}

// force rewinds an order to a given status without touching the claim flags,
// simulating a competing transition that already claimed the stock effect.
func (s *memStore) force(id string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.Status = st
	s.orders[id] = o
}

type capturePub struct {
	mu     sync.Mutex
	events []Envelope
}

func (p *capturePub) Publish(_, value []byte, _ ...kafkago.Header) {
	var env Envelope
	_ = json.Unmarshal(value, &env)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
}

func (p *capturePub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// ---- harness ----

type fixture struct {
	svc     *Service
	ledger  *memLedger
	store   *memStore
	created *capturePub
	changed *capturePub
}

func newFixture() *fixture {
	f := &fixture{
		ledger:  newMemLedger(),
		store:   newMemStore(),
		created: &capturePub{},
		changed: &capturePub{},
	}
	f.svc = &Service{
		Store: f.store,
		Catalog: &memCatalog{products: map[string]catalog.Product{
			"prod-a": {ID: "prod-a", Name: "Trail Runner", Slug: "trail-runner", PriceCents: 250000, IsActive: true},
			"prod-b": {ID: "prod-b", Name: "City Boot", Slug: "city-boot", PriceCents: 410000, IsActive: true},
			"prod-x": {ID: "prod-x", Name: "Retired Model", Slug: "retired", PriceCents: 100000, IsActive: false},
		}},
		Ledger:  f.ledger,
		Created: f.created,
		Changed: f.changed,
		Name:    "test",
		Log:     zap.NewNop(),
	}
	return f
}

func validRequest() CreateRequest {
	return CreateRequest{
		CustomerName:  "Olena K",
		CustomerEmail: "olena@example.com",
		CustomerPhone: "+380501234567",
		Items: []LineInput{
			{ProductID: "prod-a", Size: 40, Quantity: 2},
			{ProductID: "prod-b", Size: 41, Quantity: 1},
		},
	}
}

// ---- CreateOrder ----

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	f.ledger.put("prod-a", 40, 5)
	f.ledger.put("prod-b", 41, 3)

	o, err := f.svc.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if o.Status != StatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if want := int64(250000*2 + 410000); o.TotalCents != want {
		t.Errorf("total = %d, want %d", o.TotalCents, want)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(o.Items))
	}
	if o.Items[0].ProductName != "Trail Runner" || o.Items[0].PriceCents != 250000 {
		t.Errorf("item snapshot = %+v", o.Items[0])
	}
	if sa := f.ledger.at("prod-a", 40); sa.reserved != 2 {
		t.Errorf("prod-a reserved = %d, want 2", sa.reserved)
	}
	if sb := f.ledger.at("prod-b", 41); sb.reserved != 1 {
		t.Errorf("prod-b reserved = %d, want 1", sb.reserved)
	}
	if _, err := f.store.GetOrder(context.Background(), o.ID); err != nil {
		t.Errorf("order not persisted: %v", err)
	}
	if f.created.count() != 1 {
		t.Errorf("created events = %d, want 1", f.created.count())
	}
	if !f.ledger.invariantOK() {
		t.Error("ledger invariant violated")
	}
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	f := newFixture()
	f.ledger.put("prod-a", 40, 5)

	req := validRequest()
	req.Items[1].ProductID = "nope"

	_, err := f.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	if s := f.ledger.at("prod-a", 40); s.reserved != 0 {
		t.Errorf("reserved = %d after failed create, want 0", s.reserved)
	}
	if len(f.store.orders) != 0 {
		t.Error("order persisted despite failure")
	}
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = []LineInput{{ProductID: "prod-x", Size: 42, Quantity: 1}}

	if _, err := f.svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound for inactive product", err)
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture()
	f.ledger.put("prod-a", 40, 5)
	f.ledger.put("prod-b", 41, 0) // second line cannot be reserved

	_, err := f.svc.CreateOrder(context.Background(), validRequest())
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// the first line's reservation must have been compensated
	if s := f.ledger.at("prod-a", 40); s.reserved != 0 {
		t.Errorf("prod-a reserved = %d, want 0", s.reserved)
	}
	if s := f.ledger.at("prod-b", 41); s.reserved != 0 {
		t.Errorf("prod-b reserved = %d, want 0", s.reserved)
	}
	if len(f.store.orders) != 0 {
		t.Error("order persisted despite failure")
	}
	if f.created.count() != 0 {
		t.Error("event published despite failure")
	}
}

func TestCreateOrderZeroAvailable(t *testing.T) {
	f := newFixture()
	// record exists but everything is already reserved
	f.ledger.put("prod-a", 40, 2)
	if err := f.ledger.Reserve(context.Background(), "prod-a", 40, 2); err != nil {
		t.Fatal(err)
	}

	req := validRequest()
	req.Items = req.Items[:1]

	if _, err := f.svc.CreateOrder(context.Background(), req); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if s := f.ledger.at("prod-a", 40); s.reserved != 2 || s.qty != 2 {
		t.Errorf("counters changed: %+v", s)
	}
}

func TestCreateOrderMissingRecordIsZeroStock(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = req.Items[:1]

	if _, err := f.svc.CreateOrder(context.Background(), req); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock for missing record", err)
	}
}

func TestCreateOrderStoreFailureReleasesReservations(t *testing.T) {
	f := newFixture()
	f.ledger.put("prod-a", 40, 5)
	f.ledger.put("prod-b", 41, 3)
	f.store.failCreate = true

	if _, err := f.svc.CreateOrder(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
	if s := f.ledger.at("prod-a", 40); s.reserved != 0 {
		t.Errorf("prod-a reserved = %d, want 0", s.reserved)
	}
	if s := f.ledger.at("prod-b", 41); s.reserved != 0 {
		t.Errorf("prod-b reserved = %d, want 0", s.reserved)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"no name", func(r *CreateRequest) { r.CustomerName = "" }},
		{"no email", func(r *CreateRequest) { r.CustomerEmail = "" }},
		{"no phone", func(r *CreateRequest) { r.CustomerPhone = "" }},
		{"no items", func(r *CreateRequest) { r.Items = nil }},
		{"zero qty", func(r *CreateRequest) { r.Items[0].Quantity = 0 }},
		{"negative qty", func(r *CreateRequest) { r.Items[0].Quantity = -1 }},
		{"no product id", func(r *CreateRequest) { r.Items[0].ProductID = "" }},
		{"bad size", func(r *CreateRequest) { r.Items[0].Size = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := validRequest()
			c.mutate(&req)
			if _, err := f.svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCreateOrderConcurrentOverSameSize(t *testing.T) {
	f := newFixture()
	f.ledger.put("prod-a", 40, 3)

	req := validRequest()
	req.Items = []LineInput{{ProductID: "prod-a", Size: 40, Quantity: 2}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateOrder(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var okCount, shortCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, inventory.ErrInsufficientStock):
			shortCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || shortCount != 1 {
		t.Fatalf("ok=%d short=%d, want exactly one of each", okCount, shortCount)
	}
	if s := f.ledger.at("prod-a", 40); s.reserved != 2 {
		t.Errorf("reserved = %d, want 2 (never over-reserved)", s.reserved)
	}
	if !f.ledger.invariantOK() {
		t.Error("ledger invariant violated")
	}
}

// ---- UpdateStatus ----

func mustCreate(t *testing.T, f *fixture) Order {
	t.Helper()
	f.ledger.put("prod-a", 40, 5)
	f.ledger.put("prod-b", 41, 3)
	o, err := f.svc.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestUpdateStatusCancelReleases(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("status = %s", updated.Status)
	}
	if s := f.ledger.at("prod-a", 40); s.reserved != 0 || s.qty != 5 {
		t.Errorf("prod-a = %+v, want reserved 0 qty 5", s)
	}
	if s := f.ledger.at("prod-b", 41); s.reserved != 0 || s.qty != 3 {
		t.Errorf("prod-b = %+v, want reserved 0 qty 3", s)
	}
	if f.changed.count() != 1 {
		t.Errorf("status events = %d, want 1", f.changed.count())
	}
}

func TestUpdateStatusDeliveredCommits(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	for _, st := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		if _, err := f.svc.UpdateStatus(context.Background(), o.ID, st); err != nil {
			t.Fatalf("to %s: %v", st, err)
		}
	}

	if s := f.ledger.at("prod-a", 40); s.qty != 3 || s.reserved != 0 {
		t.Errorf("prod-a = %+v, want qty 3 reserved 0", s)
	}
	if s := f.ledger.at("prod-b", 41); s.qty != 2 || s.reserved != 0 {
		t.Errorf("prod-b = %+v, want qty 2 reserved 0", s)
	}
	if !f.ledger.invariantOK() {
		t.Error("ledger invariant violated")
	}
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusDelivered)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	got, _ := f.store.GetOrder(context.Background(), o.ID)
	if got.Status != StatusPending {
		t.Errorf("status = %s, want unchanged pending", got.Status)
	}
	if s := f.ledger.at("prod-a", 40); s.qty != 5 || s.reserved != 2 {
		t.Errorf("ledger changed on rejected transition: %+v", s)
	}
}

func TestUpdateStatusTerminalIsFinal(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition out of cancelled", err)
	}
}

func TestUpdateStatusUnknown(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, "paid"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.UpdateStatus(context.Background(), "missing", StatusConfirmed); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestDeliveredTwiceDoesNotDoubleCommit(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	for _, st := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		if _, err := f.svc.UpdateStatus(context.Background(), o.ID, st); err != nil {
			t.Fatal(err)
		}
	}
	// simulate a competing writer rewinding the status while the commit flag
	// stays claimed; re-delivering must not touch the ledger again
	f.store.force(o.ID, StatusShipped)
	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusDelivered); err != nil {
		t.Fatal(err)
	}

	if s := f.ledger.at("prod-a", 40); s.qty != 3 || s.reserved != 0 {
		t.Errorf("prod-a = %+v, want single commit (qty 3 reserved 0)", s)
	}
}

func TestCancelledTwiceDoesNotDoubleRelease(t *testing.T) {
	f := newFixture()
	o := mustCreate(t, f)

	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}
	f.store.force(o.ID, StatusPending)
	if _, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}

	if s := f.ledger.at("prod-a", 40); s.reserved != 0 || s.qty != 5 {
		t.Errorf("prod-a = %+v, want single release", s)
	}
	if !f.ledger.invariantOK() {
		t.Error("ledger invariant violated")
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	if _, _, err := f.svc.ListOrders(context.Background(), "paid", 1, 20); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
