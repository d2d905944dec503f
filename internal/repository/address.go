package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-desk/internal/domain/address"
)

const addressColumns = `id, uuid, user_id, address_name, address_description, city, state, zip_code,
	is_active, created_at, updated_at`

const (
	listActiveAddressesSQL = `SELECT ` + addressColumns + `
		FROM delivery_addresses
		WHERE is_active AND ($1::bigint = 0 OR user_id = $1)
		ORDER BY id`

	getActiveAddressSQL = `SELECT ` + addressColumns + `
		FROM delivery_addresses WHERE uuid = $1 AND is_active`

	getAddressesByIDsSQL = `SELECT ` + addressColumns + `
		FROM delivery_addresses WHERE id = ANY($1)`

	createAddressSQL = `INSERT INTO delivery_addresses
		(uuid, user_id, address_name, address_description, city, state, zip_code, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	updateAddressSQL = `UPDATE delivery_addresses
		SET address_name = $2, address_description = $3, city = $4, state = $5, zip_code = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	softDeleteAddressSQL = `UPDATE delivery_addresses SET is_active = FALSE, updated_at = now() WHERE id = $1`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListActive returns active addresses of ownerID, or of everyone when ownerID is zero.
func (r *AddressRepository) ListActive(ctx context.Context, ownerID int64) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listActiveAddressesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetActive returns a single active address.
func (r *AddressRepository) GetActive(ctx context.Context, id uuid.UUID) (*address.Address, error) {
	return getActiveAddress(ctx, r.pool, id)
}

// Create inserts a and fills its generated fields.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	err := r.pool.QueryRow(ctx, createAddressSQL,
		a.UUID, a.UserID, a.Name, a.Description, a.City, a.State, a.ZipCode, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating address: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a.
func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	err := r.pool.QueryRow(ctx, updateAddressSQL,
		a.ID, a.Name, a.Description, a.City, a.State, a.ZipCode,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return address.ErrNotFound
		}
		return fmt.Errorf("updating address %d: %w", a.ID, err)
	}
	return nil
}

// SoftDelete marks the address inactive.
func (r *AddressRepository) SoftDelete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, softDeleteAddressSQL, id); err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	return nil
}

func getActiveAddress(ctx context.Context, q dbtx, id uuid.UUID) (*address.Address, error) {
	rows, err := q.Query(ctx, getActiveAddressSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %s: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %s: %w", id, err)
	}
	return &a, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UUID, &a.UserID, &a.Name, &a.Description, &a.City, &a.State, &a.ZipCode,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
