// Package policy decides whether an identity may perform an action on an
// entity. Every order, order item, address and product entry point consults
// Decide instead of branching on staff/owner itself.
//
// Two tiers apply. Owners see and mutate only entities they own, and entities
// owned by someone else look absent (Hidden). Staff read everything and are the
// only ones allowed to run staff actions; a non-staff caller attempting a staff
// action is Forbidden.
package policy

import "github.com/xenking/order-desk/internal/domain/identity"

// Action is an operation subject to authorization.
type Action uint8

const (
	// ReadOrder reads an order or its items.
	ReadOrder Action = iota + 1
	// MutateItems creates, updates or deletes an order's items.
	MutateItems
	// ConfirmOrder moves an order out of the initial status.
	ConfirmOrder
	// ChangeOrder sets an arbitrary status or payment method.
	ChangeOrder
	// DeleteOrder soft-deletes an order.
	DeleteOrder
	// AuditOrders reads any order, including inactive ones.
	AuditOrders
	// RemoveItemAsStaff deletes an item through the staff route.
	RemoveItemAsStaff
	// AttachAddress uses an address for a new order.
	AttachAddress
	// ReadAddress reads a single delivery address.
	ReadAddress
	// WriteAddress updates or deletes a delivery address.
	WriteAddress
	// ListAllAddresses lists every user's addresses.
	ListAllAddresses
	// WriteProduct creates, updates or deletes a catalog product.
	WriteProduct
)

var actionNames = map[Action]string{
	ReadOrder:         "read_order",
	MutateItems:       "mutate_items",
	ConfirmOrder:      "confirm_order",
	ChangeOrder:       "change_order",
	DeleteOrder:       "delete_order",
	AuditOrders:       "audit_orders",
	RemoveItemAsStaff: "remove_item_as_staff",
	AttachAddress:     "attach_address",
	ReadAddress:       "read_address",
	WriteAddress:      "write_address",
	ListAllAddresses:  "list_all_addresses",
	WriteProduct:      "write_product",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Decision is the outcome of Decide.
type Decision uint8

const (
	// Allow permits the action.
	Allow Decision = iota
	// Hidden denies the action by reporting the entity as absent.
	Hidden
	// Forbidden denies the action explicitly.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Hidden:
		return "hidden"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decide returns the decision for id performing act on an entity owned by
// ownerID. ownerID is zero for entities without an owner (products) and for
// collection-level actions.
func Decide(id identity.Identity, act Action, ownerID int64) Decision {
	if !id.IsActive || id.UserID == 0 {
		return Forbidden
	}
	switch act {
	case ChangeOrder, DeleteOrder, AuditOrders, RemoveItemAsStaff, ListAllAddresses, WriteProduct:
		if id.IsStaff {
			return Allow
		}
		return Forbidden
	case AttachAddress, WriteAddress:
		// Orders are always created with the future owner's own address, and
		// addresses are edited only by their owner; staff get no exemption.
		if id.Owns(ownerID) {
			return Allow
		}
		return Hidden
	case ReadAddress:
		// Cross-user reads of a single address answer 403 rather than 404.
		if id.IsStaff || id.Owns(ownerID) {
			return Allow
		}
		return Forbidden
	case ReadOrder, MutateItems, ConfirmOrder:
		if id.IsStaff || id.Owns(ownerID) {
			return Allow
		}
		return Hidden
	default:
		return Forbidden
	}
}

// Check converts a decision into an error: nil for Allow, hidden for Hidden,
// and identity.ErrForbidden for Forbidden.
func Check(id identity.Identity, act Action, ownerID int64, hidden error) error {
	switch Decide(id, act, ownerID) {
	case Allow:
		return nil
	case Hidden:
		return hidden
	default:
		return identity.ErrForbidden
	}
}
