package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/product"
)

const productColumns = `id, uuid, name, description, price, promotion, image, is_active, created_at, updated_at`

const (
	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_active ORDER BY id`

	getActiveProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE uuid = $1 AND is_active`

	getActiveProductForShareSQL = getActiveProductSQL + ` FOR SHARE`

	getProductByUUIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE uuid = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (uuid, name, description, price, promotion, image, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, promotion = $5, image = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	softDeleteProductSQL = `UPDATE products SET is_active = FALSE, updated_at = now() WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (uuid, name, description, price, promotion, image, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price,
			promotion = EXCLUDED.promotion, image = EXCLUDED.image,
			updated_at = now()
		RETURNING (xmax = 0)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListActive returns the active catalog ordered by id.
func (r *ProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetActive returns a single active product.
func (r *ProductRepository) GetActive(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return getProduct(ctx, r.pool, getActiveProductSQL, id)
}

// Create inserts p and fills its generated fields.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.UUID, p.Name, p.Description, p.Price, p.Promotion, p.Image, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "products_name_key") {
			return product.ErrNameTaken
		}
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update writes the mutable fields of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Promotion, p.Image,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		if isUniqueViolation(err, "products_name_key") {
			return product.ErrNameTaken
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	return nil
}

// SoftDelete marks the product inactive.
func (r *ProductRepository) SoftDelete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, softDeleteProductSQL, id); err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	return nil
}

// Upsert inserts p or updates the product with the same name. A product
// staff soft-deleted stays inactive. It reports whether a new row was
// inserted.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) (bool, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, upsertProductSQL,
		p.UUID, p.Name, p.Description, p.Price, p.Promotion, p.Image,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upserting product %q: %w", p.Name, err)
	}
	return inserted, nil
}

func getProduct(ctx context.Context, q dbtx, query string, id uuid.UUID) (*product.Product, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.UUID, &p.Name, &p.Description, &price,
		&p.Promotion, &p.Image, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Price = price
	return p, err
}
