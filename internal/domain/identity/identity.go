// Package identity describes the authenticated caller of a request.
package identity

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthenticated is returned when a credential is missing, invalid,
	// expired, or belongs to an inactive user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when an authenticated caller is denied by policy.
	ErrForbidden = errors.New("not authorized")
)

// Identity is the resolved caller. It is passed explicitly into every
// domain operation.
type Identity struct {
	UserID   int64
	IsStaff  bool
	IsActive bool
}

// Owns reports whether the identity is the owner recorded as ownerID.
func (i Identity) Owns(ownerID int64) bool {
	return i.UserID != 0 && i.UserID == ownerID
}

// Resolver turns a bearer credential into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

type ctxKey struct{}

// With stores id in ctx.
func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the identity stored in ctx, if any.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
