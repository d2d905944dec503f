package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/order"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

const orderColumns = `id, uuid, COALESCE(order_number, 0), user_id, delivery_address_id, payment_method,
	status, order_date, is_active, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders
		(uuid, user_id, delivery_address_id, payment_method, status, order_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	// order_number is written once; later calls return the stored value.
	assignOrderNumberSQL = `UPDATE orders SET order_number = COALESCE(order_number, id)
		WHERE id = $1
		RETURNING order_number`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE uuid = $1 AND (is_active OR $2)`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::bigint = 0 OR user_id = $1) AND (is_active OR $2)
		ORDER BY created_at DESC, id DESC`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_method = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	itemColumns = `id, order_id, product_id, quantity, unit_price, created_at`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = ANY($1) ORDER BY id`

	getItemByProductSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = $1 AND product_id = $2`

	insertItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	updateItemQuantitySQL = `UPDATE order_items SET quantity = $2 WHERE id = $1`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1`

	appendEventSQL = `INSERT INTO outbox (event_id, event_type, aggregate_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	*orderQueries
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		orderQueries: &orderQueries{db: pool},
		pool:         pool,
	}
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (r *OrderRepository) InTx(ctx context.Context, fn func(q order.Queries) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&orderQueries{db: tx})
	})
}

type orderQueries struct {
	db dbtx
}

func (q *orderQueries) InsertOrder(ctx context.Context, o *order.Order) error {
	err := q.db.QueryRow(ctx, insertOrderSQL,
		o.UUID, o.UserID, o.AddressID, string(o.PaymentMethod), string(o.Status), o.OrderDate, o.IsActive,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting order %s: %w", o.UUID, err)
	}
	return nil
}

func (q *orderQueries) AssignNumber(ctx context.Context, id int64) (int64, error) {
	var number int64
	if err := q.db.QueryRow(ctx, assignOrderNumberSQL, id).Scan(&number); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, order.ErrNotFound
		}
		return 0, fmt.Errorf("assigning order number %d: %w", id, err)
	}
	return number, nil
}

func (q *orderQueries) OrderByUUID(ctx context.Context, id uuid.UUID, f order.Filter) (*order.Order, error) {
	query := getOrderSQL
	if f.Lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.db.Query(ctx, query, id, f.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %s: %w", id, err)
	}
	return &o, nil
}

func (q *orderQueries) ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	rows, err := q.db.Query(ctx, listOrdersSQL, f.OwnerID, f.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func (q *orderQueries) UpdateOrder(ctx context.Context, o *order.Order) error {
	err := q.db.QueryRow(ctx, updateOrderSQL,
		o.ID, string(o.Status), string(o.PaymentMethod), o.IsActive,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return fmt.Errorf("updating order %d: %w", o.ID, err)
	}
	return nil
}

func (q *orderQueries) Items(ctx context.Context, orderIDs ...int64) ([]order.Item, error) {
	rows, err := q.db.Query(ctx, listItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

func (q *orderQueries) ItemByProduct(ctx context.Context, orderID, productID int64) (*order.Item, error) {
	rows, err := q.db.Query(ctx, getItemByProductSQL, orderID, productID)
	if err != nil {
		return nil, fmt.Errorf("getting order item: %w", err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting order item: %w", err)
	}
	return &it, nil
}

func (q *orderQueries) InsertItem(ctx context.Context, it *order.Item) error {
	err := q.db.QueryRow(ctx, insertItemSQL,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice,
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "order_items_order_product_key") {
			return order.ErrItemExists
		}
		return fmt.Errorf("inserting order item: %w", err)
	}
	return nil
}

func (q *orderQueries) UpdateItemQuantity(ctx context.Context, id int64, quantity int) error {
	tag, err := q.db.Exec(ctx, updateItemQuantitySQL, id, quantity)
	if err != nil {
		return fmt.Errorf("updating order item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrItemNotFound
	}
	return nil
}

func (q *orderQueries) DeleteItem(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, deleteItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrItemNotFound
	}
	return nil
}

func (q *orderQueries) ActiveProductForShare(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return getProduct(ctx, q.db, getActiveProductForShareSQL, id)
}

func (q *orderQueries) ProductByUUID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return getProduct(ctx, q.db, getProductByUUIDSQL, id)
}

func (q *orderQueries) ProductsByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (q *orderQueries) ActiveAddress(ctx context.Context, id uuid.UUID) (*address.Address, error) {
	return getActiveAddress(ctx, q.db, id)
}

func (q *orderQueries) AddressesByIDs(ctx context.Context, ids []int64) ([]address.Address, error) {
	rows, err := q.db.Query(ctx, getAddressesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting addresses by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

func (q *orderQueries) ProfilesByIDs(ctx context.Context, ids []int64) ([]user.Profile, error) {
	return profilesByIDs(ctx, q.db, ids)
}

func (q *orderQueries) AppendEvent(ctx context.Context, e order.Event) error {
	_, err := q.db.Exec(ctx, appendEventSQL, e.ID, string(e.Type), e.OrderUUID, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending %s event: %w", e.Type, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		paymentMethod string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UUID, &o.Number, &o.UserID, &o.AddressID, &paymentMethod,
		&status, &o.OrderDate, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.Status = order.Status(status)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		price decimal.Decimal
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price, &it.CreatedAt)
	it.UnitPrice = price
	return it, err
}
