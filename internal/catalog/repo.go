package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repo struct{ DB *pgxpool.Pool }

// ---- categories ----

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.season, c.image_url,
		       c.is_active, c.created_at, c.updated_at,
		       COUNT(p.id) AS product_count
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		WHERE c.is_active
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Season, &c.ImageURL,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, slug, description, season, image_url, is_active, created_at, updated_at
		FROM categories WHERE slug=$1 AND is_active`, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Season, &c.ImageURL,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *Repo) getCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, slug, description, season, image_url, is_active, created_at, updated_at
		FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Season, &c.ImageURL,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	c.ID = uuid.NewString()
	c.IsActive = true
	return r.DB.QueryRow(ctx, `
		INSERT INTO categories(id, name, slug, description, season, image_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Slug, c.Description, c.Season, c.ImageURL).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *Repo) UpdateCategory(ctx context.Context, c *Category) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE categories
		SET name=$2, slug=$3, description=$4, season=$5, image_url=$6, is_active=$7, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Slug, c.Description, c.Season, c.ImageURL, c.IsActive).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// DeleteCategory deactivates; rows are never removed.
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE categories SET is_active=FALSE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- products ----

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	where := []string{"p.is_active"}
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CategoryID != "" {
		add("p.category_id = $%d", f.CategoryID)
	}
	if f.Search != "" {
		add("p.name ILIKE $%d", "%"+f.Search+"%")
	}
	if f.MinPriceCents != nil {
		add("p.price_cents >= $%d", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		add("p.price_cents <= $%d", *f.MaxPriceCents)
	}
	if f.Season != "" {
		add("(c.season = $%d OR c.season = 'all-season')", f.Season)
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price_cents,
		       p.discount_cents, p.sku, p.is_active, p.is_customizable, p.created_at, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		if err := r.attachDetails(ctx, &out[i], true); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *Repo) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, category_id, name, slug, description, price_cents, discount_cents,
		       sku, is_active, is_customizable, created_at, updated_at
		FROM products WHERE slug=$1 AND is_active`, slug).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.PriceCents,
			&p.DiscountCents, &p.SKU, &p.IsActive, &p.IsCustomizable, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	if err := r.attachDetails(ctx, &p, false); err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetProduct resolves a product by id regardless of listing filters; the order
// workflow uses it to validate lines and snapshot prices.
func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, category_id, name, slug, description, price_cents, discount_cents,
		       sku, is_active, is_customizable, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.PriceCents,
			&p.DiscountCents, &p.SKU, &p.IsActive, &p.IsCustomizable, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	p.ID = uuid.NewString()
	p.IsActive = true
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(id, category_id, name, slug, description, price_cents,
		                     discount_cents, sku, is_customizable)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.PriceCents,
		p.DiscountCents, p.SKU, p.IsCustomizable).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) UpdateProduct(ctx context.Context, p *Product) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE products
		SET category_id=$2, name=$3, slug=$4, description=$5, price_cents=$6,
		    discount_cents=$7, sku=$8, is_active=$9, is_customizable=$10, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.PriceCents,
		p.DiscountCents, p.SKU, p.IsActive, p.IsCustomizable).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return r.attachDetails(ctx, p, false)
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET is_active=FALSE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) AddImage(ctx context.Context, img *Image) error {
	img.ID = uuid.NewString()
	return r.DB.QueryRow(ctx, `
		INSERT INTO product_images(id, product_id, image_url, alt_text, sort_order, is_main)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		img.ID, img.ProductID, img.ImageURL, img.AltText, img.SortOrder, img.IsMain).
		Scan(&img.CreatedAt)
}

// attachDetails loads category, images and per-size stock. mainOnly trims the
// image set to the primary one for list payloads.
func (r *Repo) attachDetails(ctx context.Context, p *Product, mainOnly bool) error {
	cat, err := r.getCategory(ctx, p.CategoryID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		p.Category = &cat
	}

	imgQuery := `SELECT id, product_id, image_url, alt_text, sort_order, is_main, created_at
	             FROM product_images WHERE product_id=$1 ORDER BY sort_order`
	if mainOnly {
		imgQuery = `SELECT id, product_id, image_url, alt_text, sort_order, is_main, created_at
		            FROM product_images WHERE product_id=$1 AND is_main ORDER BY sort_order`
	}
	rows, err := r.DB.Query(ctx, imgQuery, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.AltText, &img.SortOrder, &img.IsMain, &img.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		p.Images = append(p.Images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	invRows, err := r.DB.Query(ctx,
		`SELECT size, quantity, reserved_quantity FROM inventory WHERE product_id=$1 ORDER BY size`, p.ID)
	if err != nil {
		return err
	}
	defer invRows.Close()
	for invRows.Next() {
		var s SizeStock
		if err := invRows.Scan(&s.Size, &s.Quantity, &s.ReservedQuantity); err != nil {
			return err
		}
		p.Inventory = append(p.Inventory, s)
	}
	return invRows.Err()
}

func scanProduct(rows pgx.Rows, p *Product) error {
	return rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.PriceCents,
		&p.DiscountCents, &p.SKU, &p.IsActive, &p.IsCustomizable, &p.CreatedAt, &p.UpdatedAt)
}
