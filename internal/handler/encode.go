package handler

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/order"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

const dateLayout = "2006-01-02"

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

// image prefixes relative paths with the configured base URL.
func (h *Handler) image(e *jx.Encoder, path string) {
	switch {
	case path == "":
		e.Null()
	case h.imageBaseURL == "" || strings.Contains(path, "://"):
		e.Str(path)
	default:
		e.Str(strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/"))
	}
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("uuid")
	e.Str(p.UUID.String())
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("promotion")
	e.Bool(p.Promotion)
	e.FieldStart("image")
	h.image(e, p.Image)
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a *address.Address) {
	e.ObjStart()
	e.FieldStart("uuid")
	e.Str(a.UUID.String())
	e.FieldStart("address_name")
	e.Str(a.Name)
	e.FieldStart("address_description")
	e.Str(a.Description)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("zip_code")
	e.Str(a.ZipCode)
	e.ObjEnd()
}

func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

func encodeProfile(e *jx.Encoder, p user.Profile) {
	e.ObjStart()
	e.FieldStart("uuid")
	e.Str(p.UUID.String())
	e.FieldStart("username")
	e.Str(p.Username)
	e.FieldStart("first_name")
	optStr(e, p.FirstName)
	e.FieldStart("last_name")
	optStr(e, p.LastName)
	e.FieldStart("full_name")
	optStr(e, p.FullName())
	e.FieldStart("cpf")
	optStr(e, p.CPF)
	e.FieldStart("email")
	optStr(e, p.Email)
	e.FieldStart("is_staff")
	e.Bool(p.IsStaff)
	e.ObjEnd()
}

// orderFields writes the order header without the enclosing braces. key is
// "uuid" for order responses and "order_uuid" for item responses.
func orderFields(e *jx.Encoder, key string, v *order.View) {
	e.FieldStart(key)
	e.Str(v.Order.UUID.String())
	e.FieldStart("order_number")
	e.Int64(v.Order.Number)
	e.FieldStart("order_date")
	e.Str(v.Order.OrderDate.Format(dateLayout))
	e.FieldStart("payment_method")
	e.Str(string(v.Order.PaymentMethod))
	e.FieldStart("status")
	e.Str(string(v.Order.Status))
	e.FieldStart("delivery_address")
	encodeAddress(e, &v.Address)
}

func encodeOrder(e *jx.Encoder, v *order.View) {
	e.ObjStart()
	orderFields(e, "uuid", v)
	e.FieldStart("total")
	money(e, v.Total)
	e.ObjEnd()
}

func encodeStaffOrder(e *jx.Encoder, v *order.StaffView) {
	e.ObjStart()
	orderFields(e, "uuid", &v.View)
	e.FieldStart("total")
	money(e, v.Total)
	e.FieldStart("is_active")
	e.Bool(v.Order.IsActive)
	e.FieldStart("user")
	encodeProfile(e, v.Owner)
	e.ObjEnd()
}

// encodeItems writes an order with its line items.
func (h *Handler) encodeItems(e *jx.Encoder, v *order.View, owner *user.Profile) {
	e.ObjStart()
	orderFields(e, "order_uuid", v)
	if owner != nil {
		e.FieldStart("user")
		encodeProfile(e, *owner)
	}
	e.FieldStart("products")
	e.ArrStart()
	for _, l := range v.Lines {
		e.ObjStart()
		e.FieldStart("uuid")
		e.Str(l.ProductUUID.String())
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("description")
		e.Str(l.Description)
		e.FieldStart("price")
		money(e, l.UnitPrice)
		e.FieldStart("promotion")
		e.Bool(l.Promotion)
		e.FieldStart("image")
		h.image(e, l.Image)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("line_total")
		money(e, l.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	money(e, v.Total)
	e.ObjEnd()
}
