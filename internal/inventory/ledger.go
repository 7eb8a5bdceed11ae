package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("inventory record not found")

	// ErrInsufficientStock: the conditional reserve found fewer available
	// units than requested (a missing record counts as zero stock).
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict: a commit or overwrite would break the reservation
	// invariant (e.g. committing more than is reserved).
	ErrConflict = errors.New("conflicting inventory update")
)

// Ledger owns the stock counters. Every mutation is a single conditional SQL
// statement, so concurrent workflows touching the same (product, size) pair
// serialize on the row without a read-modify-write window; different pairs
// never contend.
type Ledger struct{ DB *pgxpool.Pool }

func (l *Ledger) GetAvailability(ctx context.Context, productID string, size float64) (Availability, error) {
	var a Availability
	err := l.DB.QueryRow(ctx,
		`SELECT quantity, reserved_quantity FROM inventory WHERE product_id=$1 AND size=$2`,
		productID, size).Scan(&a.Quantity, &a.ReservedQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Availability{}, ErrNotFound
	}
	if err != nil {
		return Availability{}, err
	}
	a.Available = a.Quantity - a.ReservedQuantity
	return a, nil
}

func (l *Ledger) ListByProduct(ctx context.Context, productID string) ([]Record, error) {
	return l.list(ctx,
		`SELECT product_id, size, quantity, reserved_quantity, created_at, updated_at
		 FROM inventory WHERE product_id=$1 ORDER BY size`, productID)
}

func (l *Ledger) ListAll(ctx context.Context) ([]Record, error) {
	return l.list(ctx,
		`SELECT product_id, size, quantity, reserved_quantity, created_at, updated_at
		 FROM inventory ORDER BY product_id, size`)
}

func (l *Ledger) list(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := l.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ProductID, &rec.Size, &rec.Quantity, &rec.ReservedQuantity,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Reserve holds qty units. Availability check and increment are one atomic
// statement; zero rows affected means not enough available stock.
func (l *Ledger) Reserve(ctx context.Context, productID string, size float64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve qty must be positive, got %d", qty)
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity + $3, updated_at = now()
		WHERE product_id=$1 AND size=$2 AND quantity - reserved_quantity >= $3`,
		productID, size, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Release undoes a reservation without touching physical stock. The floor at
// zero guards against double-release; a missing record is a no-op.
func (l *Ledger) Release(ctx context.Context, productID string, size float64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release qty must be positive, got %d", qty)
	}
	_, err := l.DB.Exec(ctx, `
		UPDATE inventory
		SET reserved_quantity = GREATEST(reserved_quantity - $3, 0), updated_at = now()
		WHERE product_id=$1 AND size=$2`,
		productID, size, qty)
	return err
}

// Commit consumes a reservation at fulfillment: stock leaves the warehouse
// and the hold is discharged together.
func (l *Ledger) Commit(ctx context.Context, productID string, size float64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("commit qty must be positive, got %d", qty)
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity - $3, reserved_quantity = reserved_quantity - $3, updated_at = now()
		WHERE product_id=$1 AND size=$2 AND reserved_quantity >= $3 AND quantity >= $3`,
		productID, size, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// SetQuantity overwrites the owned quantity, creating the record on first
// write. ReservedQuantity is preserved; shrinking below it is rejected.
func (l *Ledger) SetQuantity(ctx context.Context, item SetItem) (Record, error) {
	return l.set(ctx, l.DB, item)
}

func (l *Ledger) BulkSetQuantity(ctx context.Context, items []SetItem) ([]Record, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Record, 0, len(items))
	for _, it := range items {
		rec, err := l.set(ctx, tx, it)
		if err != nil {
			return nil, fmt.Errorf("set %s size %s: %w", it.ProductID, FormatSize(it.Size), err)
		}
		out = append(out, rec)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (l *Ledger) set(ctx context.Context, db execer, item SetItem) (Record, error) {
	if item.Quantity < 0 {
		return Record{}, fmt.Errorf("quantity must not be negative, got %d", item.Quantity)
	}
	var rec Record
	err := db.QueryRow(ctx, `
		INSERT INTO inventory(product_id, size, quantity, reserved_quantity)
		VALUES ($1,$2,$3,0)
		ON CONFLICT (product_id, size)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING product_id, size, quantity, reserved_quantity, created_at, updated_at`,
		item.ProductID, item.Size, item.Quantity).
		Scan(&rec.ProductID, &rec.Size, &rec.Quantity, &rec.ReservedQuantity, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23514: the check constraint caught quantity < reserved_quantity
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Record{}, ErrConflict
		}
		return Record{}, err
	}
	return rec, nil
}
