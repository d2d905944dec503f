package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

// Filter narrows a single order lookup.
type Filter struct {
	// Lock takes a row lock on the order until the transaction ends.
	Lock bool
	// IncludeInactive also matches soft-deleted orders. Only audit paths set it.
	IncludeInactive bool
}

// ListFilter narrows an order listing.
type ListFilter struct {
	// OwnerID limits the listing to one user; zero lists every user.
	OwnerID         int64
	IncludeInactive bool
}

// Queries is the set of store operations the engine needs. The same set is
// available outside and inside a transaction.
type Queries interface {
	InsertOrder(ctx context.Context, o *Order) error
	// AssignNumber sets order_number from the row id once and returns it.
	AssignNumber(ctx context.Context, id int64) (int64, error)
	OrderByUUID(ctx context.Context, id uuid.UUID, f Filter) (*Order, error)
	// ListOrders returns matching orders newest first.
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateOrder(ctx context.Context, o *Order) error

	// Items returns the items of the given orders ordered by insertion.
	Items(ctx context.Context, orderIDs ...int64) ([]Item, error)
	ItemByProduct(ctx context.Context, orderID, productID int64) (*Item, error)
	InsertItem(ctx context.Context, it *Item) error
	UpdateItemQuantity(ctx context.Context, id int64, quantity int) error
	DeleteItem(ctx context.Context, id int64) error

	// ActiveProductForShare loads an active product and holds a share lock
	// on it so its price cannot change before the transaction ends.
	ActiveProductForShare(ctx context.Context, id uuid.UUID) (*product.Product, error)
	// ProductByUUID loads a product regardless of its active flag.
	ProductByUUID(ctx context.Context, id uuid.UUID) (*product.Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]product.Product, error)

	ActiveAddress(ctx context.Context, id uuid.UUID) (*address.Address, error)
	AddressesByIDs(ctx context.Context, ids []int64) ([]address.Address, error)

	ProfilesByIDs(ctx context.Context, ids []int64) ([]user.Profile, error)

	AppendEvent(ctx context.Context, e Event) error
}

// Repository runs Queries directly or inside a transaction. InTx commits when
// fn returns nil and rolls back otherwise.
type Repository interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
