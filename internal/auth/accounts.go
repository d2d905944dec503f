package auth

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// SignupInput holds the fields of a new account.
type SignupInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	CPF       string
	Password  string
}

// Accounts implements signup, login and token refresh.
type Accounts struct {
	users     user.Repository
	passwords user.PasswordHasher
	tokens    *Tokens
}

// NewAccounts creates an Accounts service.
func NewAccounts(users user.Repository, passwords user.PasswordHasher, tokens *Tokens) *Accounts {
	return &Accounts{users: users, passwords: passwords, tokens: tokens}
}

// Signup creates an active, non-staff account.
func (a *Accounts) Signup(ctx context.Context, in SignupInput) (*user.User, error) {
	switch _, err := a.users.GetByUsername(ctx, in.Username); {
	case err == nil:
		return nil, user.ErrUsernameTaken
	case !errors.Is(err, user.ErrNotFound):
		return nil, errors.Wrap(err, "lookup username")
	}

	hash, err := a.passwords.Hash(in.Password)
	if errors.Is(err, user.ErrPasswordTooLong) {
		return nil, validation.Field("password", "must be at most %d bytes", user.MaxPasswordBytes)
	}
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &user.User{
		UUID:         uuid.New(),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		CPF:          in.CPF,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := a.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login verifies credentials and issues a token pair. Unknown users, wrong
// passwords and inactive accounts all yield identity.ErrUnauthenticated.
func (a *Accounts) Login(ctx context.Context, username, password string) (Pair, error) {
	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Pair{}, identity.ErrUnauthenticated
		}
		return Pair{}, errors.Wrap(err, "lookup user")
	}
	if !u.IsActive || !a.passwords.Compare(u.PasswordHash, password) {
		return Pair{}, identity.ErrUnauthenticated
	}
	return a.tokens.Issue(u.ID)
}

// Refresh exchanges a refresh token for a new pair.
func (a *Accounts) Refresh(ctx context.Context, refresh string) (Pair, error) {
	id, err := a.tokens.Verify(refresh, Refresh)
	if err != nil {
		return Pair{}, identity.ErrUnauthenticated
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Pair{}, identity.ErrUnauthenticated
		}
		return Pair{}, errors.Wrap(err, "load user")
	}
	if !u.IsActive {
		return Pair{}, identity.ErrUnauthenticated
	}
	return a.tokens.Issue(u.ID)
}
