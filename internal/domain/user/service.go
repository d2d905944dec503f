package user

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Patch holds optional profile changes; nil fields are left untouched.
type Patch struct {
	Username  *string
	FirstName *string
	LastName  *string
	CPF       *string
	Email     *string
}

// Service implements the /users/me operations for the calling identity.
type Service struct {
	repo      Repository
	passwords PasswordHasher
}

// NewService creates a user Service.
func NewService(repo Repository, passwords PasswordHasher) *Service {
	return &Service{repo: repo, passwords: passwords}
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, who identity.Identity) (*User, error) {
	u, err := s.repo.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateMe applies p to the caller's account.
func (s *Service) UpdateMe(ctx context.Context, who identity.Identity, p Patch) (*User, error) {
	u, err := s.repo.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	if p.Username != nil && *p.Username != u.Username {
		if _, err := s.repo.GetByUsername(ctx, *p.Username); err == nil {
			return nil, ErrUsernameTaken
		}
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.CPF != nil {
		u.CPF = *p.CPF
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return u, nil
}

// Deactivate marks the caller inactive. Subsequent requests with the
// caller's tokens are rejected as unauthenticated.
func (s *Service) Deactivate(ctx context.Context, who identity.Identity) error {
	u, err := s.repo.GetByID(ctx, who.UserID)
	if err != nil {
		return err
	}
	u.IsActive = false
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("deactivate user %d: %w", u.ID, err)
	}
	return nil
}

// ChangePassword replaces the caller's password after verifying the old one.
// It reports false when the old password does not match.
func (s *Service) ChangePassword(ctx context.Context, who identity.Identity, oldPassword, newPassword string) (bool, error) {
	u, err := s.repo.GetByID(ctx, who.UserID)
	if err != nil {
		return false, err
	}
	if !s.passwords.Compare(u.PasswordHash, oldPassword) {
		return false, nil
	}
	hash, err := s.passwords.Hash(newPassword)
	if errors.Is(err, ErrPasswordTooLong) {
		return false, validation.Field("new_password", "must be at most %d bytes", MaxPasswordBytes)
	}
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.repo.Update(ctx, u); err != nil {
		return false, fmt.Errorf("update password for user %d: %w", u.ID, err)
	}
	return true, nil
}

// DeleteMe removes the caller's account. It fails with ErrHasOrders while
// orders still reference the user.
func (s *Service) DeleteMe(ctx context.Context, who identity.Identity) error {
	return s.repo.Delete(ctx, who.UserID)
}
