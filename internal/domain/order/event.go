package order

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
)

// EventType names an order event published through the outbox.
type EventType string

const (
	EventCreated       EventType = "order.created"
	EventStatusChanged EventType = "order.status_changed"
	EventDeleted       EventType = "order.deleted"
	EventItemAdded     EventType = "order.item_added"
	EventItemUpdated   EventType = "order.item_updated"
	EventItemRemoved   EventType = "order.item_removed"
)

// Event is an order change appended to the outbox in the mutating
// transaction. Payload is a JSON object.
type Event struct {
	ID        uuid.UUID
	Type      EventType
	OrderUUID uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

func newEvent(typ EventType, o *Order, at time.Time, extra func(e *jx.Encoder)) Event {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order_uuid")
	e.Str(o.UUID.String())
	e.FieldStart("order_number")
	e.Int64(o.Number)
	e.FieldStart("user_id")
	e.Int64(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("is_active")
	e.Bool(o.IsActive)
	if extra != nil {
		extra(&e)
	}
	e.ObjEnd()

	return Event{
		ID:        uuid.New(),
		Type:      typ,
		OrderUUID: o.UUID,
		Payload:   e.Bytes(),
		CreatedAt: at,
	}
}

func itemFields(productUUID uuid.UUID, it *Item) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.FieldStart("product_uuid")
		e.Str(productUUID.String())
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unit_price")
		e.Str(it.UnitPrice.StringFixed(2))
	}
}
