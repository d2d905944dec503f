package auth

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/user"
)

var _ identity.Resolver = (*Resolver)(nil)

// Resolver turns access tokens into identities. The user is reloaded on
// every call so deactivation takes effect immediately.
type Resolver struct {
	tokens *Tokens
	users  user.Repository
}

// NewResolver creates a Resolver.
func NewResolver(tokens *Tokens, users user.Repository) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve implements identity.Resolver.
func (r *Resolver) Resolve(ctx context.Context, credential string) (identity.Identity, error) {
	if credential == "" {
		return identity.Identity{}, identity.ErrUnauthenticated
	}
	id, err := r.tokens.Verify(credential, Access)
	if err != nil {
		return identity.Identity{}, identity.ErrUnauthenticated
	}
	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return identity.Identity{}, identity.ErrUnauthenticated
		}
		return identity.Identity{}, errors.Wrap(err, "load user")
	}
	if !u.IsActive {
		return identity.Identity{}, identity.ErrUnauthenticated
	}
	return identity.Identity{UserID: u.ID, IsStaff: u.IsStaff, IsActive: true}, nil
}
