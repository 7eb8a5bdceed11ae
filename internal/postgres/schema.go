package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotent DDL executed at startup. The check constraint on inventory is a
// hard backstop for the reservation invariant; application code never relies
// on it as the primary guard.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		season      TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id              UUID PRIMARY KEY,
		category_id     UUID NOT NULL REFERENCES categories(id),
		name            TEXT NOT NULL,
		slug            TEXT NOT NULL UNIQUE,
		description     TEXT NOT NULL DEFAULT '',
		price_cents     BIGINT NOT NULL,
		discount_cents  BIGINT,
		sku             TEXT NOT NULL DEFAULT '',
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		is_customizable BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id         UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id),
		image_url  TEXT NOT NULL,
		alt_text   TEXT NOT NULL DEFAULT '',
		sort_order INT NOT NULL DEFAULT 0,
		is_main    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images(product_id)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id        UUID NOT NULL REFERENCES products(id),
		size              NUMERIC(4,1) NOT NULL,
		quantity          INT NOT NULL DEFAULT 0,
		reserved_quantity INT NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (product_id, size),
		CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               UUID PRIMARY KEY,
		order_number     TEXT NOT NULL UNIQUE,
		customer_name    TEXT NOT NULL,
		customer_email   TEXT NOT NULL,
		customer_phone   TEXT NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		total_cents      BIGINT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending',
		notes            TEXT NOT NULL DEFAULT '',
		stock_released   BOOLEAN NOT NULL DEFAULT FALSE,
		stock_committed  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id            UUID PRIMARY KEY,
		order_id      UUID NOT NULL REFERENCES orders(id),
		product_id    UUID NOT NULL REFERENCES products(id),
		product_name  TEXT NOT NULL,
		size          NUMERIC(4,1) NOT NULL,
		quantity      INT NOT NULL,
		price_cents   BIGINT NOT NULL,
		customization JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
}

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
