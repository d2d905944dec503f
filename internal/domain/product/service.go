package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/policy"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// maxPrice is the largest value that fits NUMERIC(10,2).
var maxPrice = decimal.RequireFromString("99999999.99")

// Input holds the writable product fields.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Promotion   bool
	Image       string
}

// Validate checks the price range and precision.
func (in Input) Validate() error {
	switch {
	case in.Price.IsNegative():
		return validation.Field("price", "must not be negative")
	case in.Price.GreaterThan(maxPrice):
		return validation.Field("price", "must not exceed %s", maxPrice)
	case !in.Price.Equal(in.Price.Truncate(2)):
		return validation.Field("price", "must have at most 2 decimal places")
	}
	return nil
}

// Service exposes the public catalog and the staff-only catalog writes.
type Service struct {
	repo Repository
}

// NewService creates a product Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all active products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get returns a single active product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetActive(ctx, id)
}

// Create adds a product to the catalog. Staff only.
func (s *Service) Create(ctx context.Context, who identity.Identity, in Input) (*Product, error) {
	if err := policy.Check(who, policy.WriteProduct, 0, ErrNotFound); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &Product{
		UUID:        uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Promotion:   in.Promotion,
		Image:       in.Image,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update replaces the fields of an active product. Staff only. An empty
// image keeps the current one. Existing order items keep their snapshotted
// unit price.
func (s *Service) Update(ctx context.Context, who identity.Identity, id uuid.UUID, in Input) (*Product, error) {
	if err := policy.Check(who, policy.WriteProduct, 0, ErrNotFound); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Promotion = in.Promotion
	if in.Image != "" {
		p.Image = in.Image
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

// Delete soft-deletes an active product. Staff only. Order items that
// reference it stay valid history.
func (s *Service) Delete(ctx context.Context, who identity.Identity, id uuid.UUID) error {
	if err := policy.Check(who, policy.WriteProduct, 0, ErrNotFound); err != nil {
		return err
	}
	p, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, p.ID); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}
