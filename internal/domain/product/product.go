package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist or is inactive.
	ErrNotFound = errors.New("product not found")
	// ErrNameTaken is returned when another product already uses the name.
	ErrNameTaken = errors.New("product with this name already exists")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	UUID        uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Promotion   bool
	// Image is the stored image reference, empty when the product has none.
	Image     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for the product catalog. Get and
// list operations only see active products.
type Repository interface {
	ListActive(ctx context.Context) ([]Product, error)
	GetActive(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SoftDelete(ctx context.Context, id int64) error
}
