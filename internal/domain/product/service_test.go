package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/validation"
)

type mockRepo struct {
	byUUID  map[uuid.UUID]*Product
	created *Product
	updated *Product
	deleted int64
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byUUID: map[uuid.UUID]*Product{}}
	for i := range products {
		m.byUUID[products[i].UUID] = &products[i]
	}
	return m
}

func (m *mockRepo) ListActive(context.Context) ([]Product, error) {
	var out []Product
	for _, p := range m.byUUID {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) GetActive(_ context.Context, id uuid.UUID) (*Product, error) {
	p, ok := m.byUUID[id]
	if !ok || !p.IsActive {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	p.ID = 100
	m.created = p
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	m.updated = p
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id int64) error {
	m.deleted = id
	return nil
}

var (
	staff    = identity.Identity{UserID: 1, IsStaff: true, IsActive: true}
	customer = identity.Identity{UserID: 2, IsActive: true}
)

func TestInputValidate(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"0", true},
		{"15.5", true},
		{"15.50", true},
		{"99999999.99", true},
		{"100000000", false},
		{"-1", false},
		{"1.999", false},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := Input{Name: "x", Price: decimal.RequireFromString(tt.price)}.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "price", verr.Fields[0].Field)
		})
	}
}

func TestService_Create(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	in := Input{Name: "Pizza", Description: "Large", Price: decimal.RequireFromString("15.5"), Promotion: true}

	_, err := svc.Create(context.Background(), customer, in)
	require.ErrorIs(t, err, identity.ErrForbidden)
	assert.Nil(t, repo.created)

	p, err := svc.Create(context.Background(), staff, in)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.ID)
	assert.NotEqual(t, uuid.Nil, p.UUID)
	assert.True(t, p.IsActive)
	assert.Equal(t, "15.50", p.Price.StringFixed(2))
}

func TestService_Update(t *testing.T) {
	existing := Product{ID: 5, UUID: uuid.New(), Name: "Pizza", Price: decimal.NewFromInt(10), Image: "pizza.png", IsActive: true}
	repo := newMockRepo(existing)
	svc := NewService(repo)

	p, err := svc.Update(context.Background(), staff, existing.UUID, Input{Name: "Pizza XL", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)
	assert.Equal(t, "Pizza XL", p.Name)
	assert.Equal(t, "pizza.png", p.Image)
	assert.Same(t, p, repo.updated)

	_, err = svc.Update(context.Background(), staff, uuid.New(), Input{Name: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), customer, existing.UUID, Input{Name: "x"})
	require.ErrorIs(t, err, identity.ErrForbidden)
}

func TestService_Delete(t *testing.T) {
	existing := Product{ID: 5, UUID: uuid.New(), IsActive: true}
	inactive := Product{ID: 6, UUID: uuid.New()}
	repo := newMockRepo(existing, inactive)
	svc := NewService(repo)

	require.ErrorIs(t, svc.Delete(context.Background(), customer, existing.UUID), identity.ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), staff, inactive.UUID), ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), staff, existing.UUID))
	assert.Equal(t, int64(5), repo.deleted)
}

func TestService_ListAndGet(t *testing.T) {
	active := Product{ID: 1, UUID: uuid.New(), Name: "Pizza", IsActive: true}
	inactive := Product{ID: 2, UUID: uuid.New(), Name: "Old"}
	svc := NewService(newMockRepo(active, inactive))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pizza", list[0].Name)

	_, err = svc.Get(context.Background(), inactive.UUID)
	require.ErrorIs(t, err, ErrNotFound)
}
