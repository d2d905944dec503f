package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/validation"
)

type mockRepo struct {
	addrs   []Address
	listFor int64
	updated *Address
	deleted int64
}

func (m *mockRepo) ListActive(_ context.Context, ownerID int64) ([]Address, error) {
	m.listFor = ownerID
	var out []Address
	for _, a := range m.addrs {
		if a.IsActive && (ownerID == 0 || a.UserID == ownerID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) GetActive(_ context.Context, id uuid.UUID) (*Address, error) {
	for _, a := range m.addrs {
		if a.UUID == id && a.IsActive {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, a *Address) error {
	a.ID = int64(len(m.addrs) + 1)
	m.addrs = append(m.addrs, *a)
	return nil
}

func (m *mockRepo) Update(_ context.Context, a *Address) error {
	m.updated = a
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id int64) error {
	m.deleted = id
	return nil
}

var (
	alice = identity.Identity{UserID: 1, IsActive: true}
	bob   = identity.Identity{UserID: 2, IsActive: true}
	staff = identity.Identity{UserID: 3, IsStaff: true, IsActive: true}
)

func validInput() Input {
	return Input{Name: "Home", City: "Recife", State: "PE", ZipCode: "50030230"}
}

func newRepo() (*mockRepo, Address) {
	a := Address{ID: 1, UUID: uuid.New(), UserID: alice.UserID, Name: "Home", State: "PE", ZipCode: "50030230", IsActive: true}
	return &mockRepo{addrs: []Address{a, {ID: 2, UUID: uuid.New(), UserID: bob.UserID, IsActive: true}}}, a
}

func TestInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	in := validInput()
	in.State = "XX"
	in.ZipCode = "5003-230"
	var verr *validation.Error
	require.ErrorAs(t, in.Validate(), &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "state", verr.Fields[0].Field)
	assert.Equal(t, "zip_code", verr.Fields[1].Field)
}

func TestService_List(t *testing.T) {
	repo, _ := newRepo()
	svc := NewService(repo)

	mine, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, alice.UserID, repo.listFor)

	all, err := svc.List(context.Background(), staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Zero(t, repo.listFor)
}

func TestService_Get(t *testing.T) {
	repo, a := newRepo()
	svc := NewService(repo)

	got, err := svc.Get(context.Background(), alice, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// Reading another user's address by id is forbidden, not hidden.
	_, err = svc.Get(context.Background(), bob, a.UUID)
	require.ErrorIs(t, err, identity.ErrForbidden)

	_, err = svc.Get(context.Background(), staff, a.UUID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), alice, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Create(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), bob, validInput())
	require.NoError(t, err)
	assert.Equal(t, bob.UserID, a.UserID)
	assert.True(t, a.IsActive)

	in := validInput()
	in.ZipCode = "123"
	_, err = svc.Create(context.Background(), bob, in)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
}

func TestService_UpdateDelete(t *testing.T) {
	repo, a := newRepo()
	svc := NewService(repo)

	in := validInput()
	in.City = "Olinda"
	_, err := svc.Update(context.Background(), bob, a.UUID, in)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(context.Background(), staff, a.UUID, in)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), bob, a.UUID), ErrNotFound)

	got, err := svc.Update(context.Background(), alice, a.UUID, in)
	require.NoError(t, err)
	assert.Equal(t, "Olinda", got.City)
	assert.Same(t, got, repo.updated)

	require.NoError(t, svc.Delete(context.Background(), alice, a.UUID))
	assert.Equal(t, a.ID, repo.deleted)
}
