// Package user holds account profiles. Orders reference users with a
// restrict-on-delete foreign key.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when signing up or renaming to an existing username.
	ErrUsernameTaken = errors.New("user already exists")
	// ErrHasOrders is returned when deleting a user that orders still reference.
	ErrHasOrders = errors.New("user has orders and cannot be deleted")
	// ErrPasswordTooLong is returned by a PasswordHasher for input it cannot hash.
	ErrPasswordTooLong = errors.New("password too long")
)

// User is a stored account.
type User struct {
	ID           int64
	UUID         uuid.UUID
	Username     string
	FirstName    string
	LastName     string
	Email        string
	CPF          string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	CreatedAt    time.Time
}

// Profile returns the public summary of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		UUID:      u.UUID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CPF:       u.CPF,
		IsStaff:   u.IsStaff,
	}
}

// Profile is the user summary embedded in staff order views and returned by /users/me.
type Profile struct {
	ID        int64
	UUID      uuid.UUID
	Username  string
	FirstName string
	LastName  string
	Email     string
	CPF       string
	IsStaff   bool
}

// FullName joins first and last name, or returns "" when both are empty.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Repository defines persistence operations for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}
