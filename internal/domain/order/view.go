package order

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

// View is the owner-facing projection of an order.
type View struct {
	Order   Order
	Address address.Address
	Lines   []Line
	Total   decimal.Decimal
}

// StaffView is View plus the owner's profile.
type StaffView struct {
	View
	Owner user.Profile
}

// Line is one item of a View. UnitPrice comes from the item, the other
// product fields are read from the live catalog row.
type Line struct {
	OrderUUID   uuid.UUID
	ProductUUID uuid.UUID
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Promotion   bool
	Image       string
	Quantity    int
	LineTotal   decimal.Decimal
}

// Project assembles the owner view of o. Items are emitted in insertion
// order; items whose product is missing from products are skipped.
func Project(o Order, addr address.Address, items []Item, products map[int64]product.Product) View {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Item) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	v := View{
		Order:   o,
		Address: addr,
		Lines:   make([]Line, 0, len(sorted)),
		Total:   decimal.Zero,
	}
	for _, it := range sorted {
		if it.OrderID != o.ID {
			continue
		}
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		total := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		v.Lines = append(v.Lines, Line{
			OrderUUID:   o.UUID,
			ProductUUID: p.UUID,
			Name:        p.Name,
			Description: p.Description,
			UnitPrice:   it.UnitPrice,
			Promotion:   p.Promotion,
			Image:       p.Image,
			Quantity:    it.Quantity,
			LineTotal:   total,
		})
		v.Total = v.Total.Add(total)
	}
	return v
}

// ProjectStaff extends v with the owner's profile.
func ProjectStaff(v View, owner user.Profile) StaffView {
	return StaffView{View: v, Owner: owner}
}
