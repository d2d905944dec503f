// Package address manages delivery addresses. Every address belongs to one
// user and is only soft-deleted, so orders that reference it keep a valid
// history.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an address does not exist, is inactive, or is
// hidden from the caller.
var ErrNotFound = errors.New("delivery address not found")

// Address is a delivery address owned by a user.
type Address struct {
	ID          int64
	UUID        uuid.UUID
	UserID      int64
	Name        string
	Description string
	City        string
	State       string
	ZipCode     string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// States lists the accepted state acronyms.
var States = []string{
	"AC", "AL", "AM", "AP", "BA", "CE", "DF", "ES", "GO", "MA", "MG", "MS", "MT", "PA",
	"PB", "PE", "PI", "PR", "RJ", "RN", "RO", "RR", "RS", "SC", "SE", "SP", "TO",
}

// Repository defines persistence operations for delivery addresses. Get and
// list operations only see active addresses.
type Repository interface {
	// ListActive returns active addresses of ownerID, or of every user when
	// ownerID is zero.
	ListActive(ctx context.Context, ownerID int64) ([]Address, error)
	GetActive(ctx context.Context, id uuid.UUID) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	SoftDelete(ctx context.Context, id int64) error
}
