package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder persists the order and its items in one transaction; either the
// whole order lands or none of it does.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, order_number, customer_name, customer_email, customer_phone,
		                   shipping_address, total_cents, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.TotalCents, o.Status, o.Notes).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, size, quantity,
			                        price_cents, customization)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Size, it.Quantity,
			it.PriceCents, it.Customization)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_number, customer_name, customer_email, customer_phone,
		       shipping_address, total_cents, status, notes, stock_released, stock_committed,
		       created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.ShippingAddress, &o.TotalCents, &o.Status, &o.Notes, &o.StockReleased, &o.StockCommitted,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.loadItems(ctx, o.ID)
	return o, err
}

func (r *Repo) ListOrders(ctx context.Context, status Status, page, limit int) ([]Order, int, error) {
	cond := ""
	args := []any{}
	if status != "" {
		cond = "WHERE status=$1"
		args = append(args, status)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	limitPos := len(args) - 1

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_number, customer_name, customer_email, customer_phone,
		       shipping_address, total_cents, status, notes, stock_released, stock_committed,
		       created_at, updated_at
		FROM orders `+cond+`
		ORDER BY created_at DESC
		LIMIT $`+strconv.Itoa(limitPos)+` OFFSET $`+strconv.Itoa(limitPos+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.ShippingAddress, &o.TotalCents, &o.Status, &o.Notes, &o.StockReleased, &o.StockCommitted,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Items = items
	}
	return out, total, nil
}

func (r *Repo) loadItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.product_name, i.size, i.quantity,
		       i.price_cents, i.customization, p.name, p.slug
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1
		ORDER BY i.created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var ref ProductRef
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Size,
			&it.Quantity, &it.PriceCents, &it.Customization, &ref.Name, &ref.Slug); err != nil {
			return nil, err
		}
		ref.ID = it.ProductID
		it.Product = &ref
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) SetStatus(ctx context.Context, id string, st Status) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ClaimStockCommit flips the order to st and claims the one permitted stock
// commit. A false return means another transition already claimed it, so the
// caller must not touch the ledger again.
func (r *Repo) ClaimStockCommit(ctx context.Context, id string, st Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, stock_committed=TRUE, updated_at=now()
		WHERE id=$1 AND NOT stock_committed`, id, st)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) ClaimStockRelease(ctx context.Context, id string, st Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, stock_released=TRUE, updated_at=now()
		WHERE id=$1 AND NOT stock_released`, id, st)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
