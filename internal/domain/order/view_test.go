package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

func TestProject(t *testing.T) {
	o := Order{ID: 7, UUID: uuid.New(), Number: 7, UserID: 1, AddressID: 2, Status: StatusReceived}
	addr := address.Address{ID: 2, Name: "Home"}
	products := map[int64]product.Product{
		10: {ID: 10, UUID: uuid.New(), Name: "Pizza", Description: "Large", Price: decimal.RequireFromString("99"), Image: "pizza.png"},
		11: {ID: 11, UUID: uuid.New(), Name: "Soda", Promotion: true},
	}
	items := []Item{
		{ID: 5, OrderID: 7, ProductID: 11, Quantity: 2, UnitPrice: decimal.RequireFromString("4.25")},
		{ID: 3, OrderID: 7, ProductID: 10, Quantity: 3, UnitPrice: decimal.RequireFromString("15.50")},
		{ID: 4, OrderID: 8, ProductID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("1")},
	}

	v := Project(o, addr, items, products)

	require.Len(t, v.Lines, 2)
	assert.Equal(t, "Pizza", v.Lines[0].Name)
	assert.Equal(t, "15.50", v.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "46.50", v.Lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "pizza.png", v.Lines[0].Image)
	assert.Equal(t, o.UUID, v.Lines[0].OrderUUID)
	assert.Equal(t, "Soda", v.Lines[1].Name)
	assert.True(t, v.Lines[1].Promotion)
	assert.Equal(t, "55.00", v.Total.StringFixed(2))
	assert.Equal(t, "Home", v.Address.Name)

	// Input order is left untouched.
	assert.Equal(t, int64(5), items[0].ID)

	sv := ProjectStaff(v, user.Profile{ID: 1, Username: "alice"})
	assert.Equal(t, "alice", sv.Owner.Username)
	assert.Equal(t, v.Total, sv.Total)
}

func TestProject_Empty(t *testing.T) {
	v := Project(Order{ID: 1}, address.Address{}, nil, nil)
	assert.NotNil(t, v.Lines)
	assert.Empty(t, v.Lines)
	assert.True(t, v.Total.IsZero())
}
