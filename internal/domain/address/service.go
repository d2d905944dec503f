package address

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/policy"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// Input holds the writable address fields.
type Input struct {
	Name        string
	Description string
	City        string
	State       string
	ZipCode     string
}

// Validate checks the state acronym and zip code format.
func (in Input) Validate() error {
	var fields []validation.FieldError
	if !slices.Contains(States, in.State) {
		fields = append(fields, validation.FieldError{Field: "state", Message: fmt.Sprintf("%q is not a valid choice", in.State)})
	}
	if !isZipCode(in.ZipCode) {
		fields = append(fields, validation.FieldError{Field: "zip_code", Message: "must be 8 digits"})
	}
	if len(fields) > 0 {
		return &validation.Error{Fields: fields}
	}
	return nil
}

func isZipCode(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Service implements delivery address operations scoped by the policy.
type Service struct {
	repo Repository
}

// NewService creates an address Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the caller's active addresses, or every active address for staff.
func (s *Service) List(ctx context.Context, who identity.Identity) ([]Address, error) {
	ownerID := who.UserID
	if policy.Decide(who, policy.ListAllAddresses, 0) == policy.Allow {
		ownerID = 0
	}
	addrs, err := s.repo.ListActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

// Get returns a single address. Another user's address yields
// identity.ErrForbidden instead of ErrNotFound.
func (s *Service) Get(ctx context.Context, who identity.Identity, id uuid.UUID) (*Address, error) {
	a, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(who, policy.ReadAddress, a.UserID, ErrNotFound); err != nil {
		return nil, err
	}
	return a, nil
}

// Create stores a new address owned by the caller.
func (s *Service) Create(ctx context.Context, who identity.Identity, in Input) (*Address, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := &Address{
		UUID:        uuid.New(),
		UserID:      who.UserID,
		Name:        in.Name,
		Description: in.Description,
		City:        in.City,
		State:       in.State,
		ZipCode:     in.ZipCode,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	return a, nil
}

// Update replaces the fields of one of the caller's addresses.
func (s *Service) Update(ctx context.Context, who identity.Identity, id uuid.UUID, in Input) (*Address, error) {
	a, err := s.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a.Name = in.Name
	a.Description = in.Description
	a.City = in.City
	a.State = in.State
	a.ZipCode = in.ZipCode
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update address %s: %w", id, err)
	}
	return a, nil
}

// Delete soft-deletes one of the caller's addresses. Orders already
// referencing it are unaffected.
func (s *Service) Delete(ctx context.Context, who identity.Identity, id uuid.UUID) error {
	a, err := s.owned(ctx, who, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, a.ID); err != nil {
		return fmt.Errorf("delete address %s: %w", id, err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, who identity.Identity, id uuid.UUID) (*Address, error) {
	a, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(who, policy.WriteAddress, a.UserID, ErrNotFound); err != nil {
		return nil, err
	}
	return a, nil
}
