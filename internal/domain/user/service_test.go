package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/validation"
)

type mockRepo struct {
	users     map[int64]*User
	deleteErr error
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.users, id)
	return nil
}

// plainHasher prefixes passwords instead of hashing them.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) {
	if p == "too-long" {
		return "", ErrPasswordTooLong
	}
	return "hashed:" + p, nil
}

func (plainHasher) Compare(h, p string) bool { return h == "hashed:"+p }

func newRepo() *mockRepo {
	return &mockRepo{users: map[int64]*User{
		1: {ID: 1, Username: "alice", FirstName: "Alice", PasswordHash: "hashed:secret", IsActive: true},
		2: {ID: 2, Username: "bob", IsActive: true},
	}}
}

var alice = identity.Identity{UserID: 1, IsActive: true}

func TestService_UpdateMe(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, plainHasher{})

	taken := "bob"
	_, err := svc.UpdateMe(context.Background(), alice, Patch{Username: &taken})
	require.ErrorIs(t, err, ErrUsernameTaken)

	name, last := "ally", "Souza"
	u, err := svc.UpdateMe(context.Background(), alice, Patch{Username: &name, LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "ally", u.Username)
	assert.Equal(t, "Alice", u.FirstName)
	assert.Equal(t, "Alice Souza", u.Profile().FullName())
	assert.Equal(t, "ally", repo.users[1].Username)
}

func TestService_ChangePassword(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, plainHasher{})

	ok, err := svc.ChangePassword(context.Background(), alice, "wrong", "new")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ChangePassword(context.Background(), alice, "secret", "new")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hashed:new", repo.users[1].PasswordHash)

	_, err = svc.ChangePassword(context.Background(), alice, "new", "too-long")
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "new_password", verr.Fields[0].Field)
	assert.Equal(t, "hashed:new", repo.users[1].PasswordHash)
}

func TestService_DeactivateAndDelete(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, plainHasher{})

	require.NoError(t, svc.Deactivate(context.Background(), alice))
	assert.False(t, repo.users[1].IsActive)

	repo.deleteErr = ErrHasOrders
	require.ErrorIs(t, svc.DeleteMe(context.Background(), alice), ErrHasOrders)

	repo.deleteErr = nil
	require.NoError(t, svc.DeleteMe(context.Background(), alice))
	_, err := svc.Me(context.Background(), alice)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProfile_FullName(t *testing.T) {
	assert.Equal(t, "", Profile{}.FullName())
	assert.Equal(t, "Ana", Profile{FirstName: "Ana"}.FullName())
}
