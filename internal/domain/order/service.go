package order

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/policy"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// CreateInput holds the input for creating an order.
type CreateInput struct {
	PaymentMethod PaymentMethod
	AddressUUID   uuid.UUID
}

// Change holds a staff update of an order. Nil fields are left untouched.
type Change struct {
	Status        *Status
	PaymentMethod *PaymentMethod
}

// ItemInput identifies an item by its order and product.
type ItemInput struct {
	OrderUUID   uuid.UUID
	ProductUUID uuid.UUID
	Quantity    int
}

// Service is the order engine.
type Service struct {
	repo   Repository
	tracer trace.Tracer
	now    func() time.Time

	created     metric.Int64Counter
	transitions metric.Int64Counter
	itemWrites  metric.Int64Counter
}

// NewService creates an order Service. Spans and counters are registered on
// the given providers.
func NewService(repo Repository, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter("order-desk/order")
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	transitions, err := meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Order status transitions by target status"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.status_transitions counter")
	}
	itemWrites, err := meter.Int64Counter("orders.item_writes",
		metric.WithDescription("Order item writes by operation"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.item_writes counter")
	}
	return &Service{
		repo:        repo,
		tracer:      tp.Tracer("order-desk/order"),
		now:         time.Now,
		created:     created,
		transitions: transitions,
		itemWrites:  itemWrites,
	}, nil
}

func (s *Service) start(ctx context.Context, name string, who identity.Identity) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "order."+name, trace.WithAttributes(
		attribute.Int64("user.id", who.UserID),
		attribute.Bool("user.staff", who.IsStaff),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateOrder creates an order in the initial status for the caller, using
// one of the caller's own addresses.
func (s *Service) CreateOrder(ctx context.Context, who identity.Identity, in CreateInput) (_ *View, err error) {
	ctx, span := s.start(ctx, "CreateOrder", who)
	defer func() { end(span, err) }()

	if !in.PaymentMethod.Valid() {
		return nil, validation.Field("payment_method", "%q is not a valid choice", in.PaymentMethod)
	}

	var o *Order
	err = s.repo.InTx(ctx, func(q Queries) error {
		addr, err := q.ActiveAddress(ctx, in.AddressUUID)
		if err != nil {
			return err
		}
		if err := policy.Check(who, policy.AttachAddress, addr.UserID, address.ErrNotFound); err != nil {
			return err
		}

		now := s.now()
		o = &Order{
			UUID:          uuid.New(),
			UserID:        who.UserID,
			AddressID:     addr.ID,
			PaymentMethod: in.PaymentMethod,
			Status:        StatusReceived,
			OrderDate:     now,
			IsActive:      true,
		}
		if err := q.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		number, err := q.AssignNumber(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("assign order number: %w", err)
		}
		o.Number = number
		return q.AppendEvent(ctx, newEvent(EventCreated, o, now, nil))
	})
	if err != nil {
		return nil, err
	}
	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(o.PaymentMethod))))

	views, err := s.views(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetOrder returns one of the caller's active orders. Orders of other users
// are reported as ErrNotFound; staff may read any active order.
func (s *Service) GetOrder(ctx context.Context, who identity.Identity, id uuid.UUID) (_ *View, err error) {
	ctx, span := s.start(ctx, "GetOrder", who)
	defer func() { end(span, err) }()

	o, err := s.repo.OrderByUUID(ctx, id, Filter{})
	if err != nil {
		return nil, err
	}
	if err := policy.Check(who, policy.ReadOrder, o.UserID, ErrNotFound); err != nil {
		return nil, err
	}
	views, err := s.views(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListOrders returns the caller's active orders.
func (s *Service) ListOrders(ctx context.Context, who identity.Identity) (_ []View, err error) {
	ctx, span := s.start(ctx, "ListOrders", who)
	defer func() { end(span, err) }()

	if who.UserID == 0 {
		return nil, identity.ErrUnauthenticated
	}
	orders, err := s.repo.ListOrders(ctx, ListFilter{OwnerID: who.UserID})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.views(ctx, s.repo, orders)
}

// GetForAudit returns any order, including soft-deleted ones, with its
// owner's profile. Staff only.
func (s *Service) GetForAudit(ctx context.Context, who identity.Identity, id uuid.UUID) (_ *StaffView, err error) {
	ctx, span := s.start(ctx, "GetForAudit", who)
	defer func() { end(span, err) }()

	if err := policy.Check(who, policy.AuditOrders, 0, ErrNotFound); err != nil {
		return nil, err
	}
	o, err := s.repo.OrderByUUID(ctx, id, Filter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	views, err := s.staffViews(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListForAudit returns every order, including soft-deleted ones. Staff only.
func (s *Service) ListForAudit(ctx context.Context, who identity.Identity) (_ []StaffView, err error) {
	ctx, span := s.start(ctx, "ListForAudit", who)
	defer func() { end(span, err) }()

	if err := policy.Check(who, policy.AuditOrders, 0, ErrNotFound); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, ListFilter{IncludeInactive: true})
	if err != nil {
		return nil, fmt.Errorf("list orders for audit: %w", err)
	}
	return s.staffViews(ctx, s.repo, orders)
}

// UpdateOrder applies a staff change. Staff may move a non-terminal order to
// any status; terminal orders never change status.
func (s *Service) UpdateOrder(ctx context.Context, who identity.Identity, id uuid.UUID, c Change) (_ *StaffView, err error) {
	ctx, span := s.start(ctx, "UpdateOrder", who)
	defer func() { end(span, err) }()

	if err := policy.Check(who, policy.ChangeOrder, 0, ErrNotFound); err != nil {
		return nil, err
	}
	if c.Status != nil && !c.Status.Valid() {
		return nil, validation.Field("status", "%q is not a valid choice", *c.Status)
	}
	if c.PaymentMethod != nil && !c.PaymentMethod.Valid() {
		return nil, validation.Field("payment_method", "%q is not a valid choice", *c.PaymentMethod)
	}

	var (
		o       *Order
		changed bool
	)
	err = s.repo.InTx(ctx, func(q Queries) error {
		var err error
		o, err = q.OrderByUUID(ctx, id, Filter{Lock: true})
		if err != nil {
			return err
		}
		if c.Status != nil && *c.Status != o.Status {
			if o.Status.Terminal() {
				return &InvalidStateError{Status: o.Status, Op: "change status"}
			}
			o.Status = *c.Status
			changed = true
		}
		if c.PaymentMethod != nil {
			o.PaymentMethod = *c.PaymentMethod
		}
		if err := q.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if !changed {
			return nil
		}
		return q.AppendEvent(ctx, newEvent(EventStatusChanged, o, s.now(), nil))
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	}

	views, err := s.staffViews(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ConfirmOrder is the owner's single self-service transition, from
// RECEIVED to PREPARATION.
func (s *Service) ConfirmOrder(ctx context.Context, who identity.Identity, id uuid.UUID) (_ *View, err error) {
	ctx, span := s.start(ctx, "ConfirmOrder", who)
	defer func() { end(span, err) }()

	var o *Order
	err = s.repo.InTx(ctx, func(q Queries) error {
		var err error
		o, err = q.OrderByUUID(ctx, id, Filter{Lock: true})
		if err != nil {
			return err
		}
		if err := policy.Check(who, policy.ConfirmOrder, o.UserID, ErrNotFound); err != nil {
			return err
		}
		if o.Status != StatusReceived {
			return &InvalidStateError{Status: o.Status, Op: "be confirmed"}
		}
		o.Status = StatusPreparation
		if err := q.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return q.AppendEvent(ctx, newEvent(EventStatusChanged, o, s.now(), nil))
	})
	if err != nil {
		return nil, err
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))

	views, err := s.views(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteOrder soft-deletes an order. Staff only.
func (s *Service) DeleteOrder(ctx context.Context, who identity.Identity, id uuid.UUID) (err error) {
	ctx, span := s.start(ctx, "DeleteOrder", who)
	defer func() { end(span, err) }()

	if err := policy.Check(who, policy.DeleteOrder, 0, ErrNotFound); err != nil {
		return err
	}
	return s.repo.InTx(ctx, func(q Queries) error {
		o, err := q.OrderByUUID(ctx, id, Filter{Lock: true})
		if err != nil {
			return err
		}
		o.IsActive = false
		if err := q.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("soft delete order: %w", err)
		}
		return q.AppendEvent(ctx, newEvent(EventDeleted, o, s.now(), nil))
	})
}

// mutable loads the order for an item write under a row lock and checks
// visibility and status.
func mutable(ctx context.Context, q Queries, who identity.Identity, id uuid.UUID, op string) (*Order, error) {
	o, err := q.OrderByUUID(ctx, id, Filter{Lock: true})
	if err != nil {
		return nil, err
	}
	if err := policy.Check(who, policy.MutateItems, o.UserID, ErrNotFound); err != nil {
		return nil, err
	}
	if !o.Status.ItemsMutable() {
		return nil, &InvalidStateError{Status: o.Status, Op: op}
	}
	return o, nil
}

// validQuantity bounds quantity to the INTEGER column it is stored in.
func validQuantity(q int) error {
	switch {
	case q < 1:
		return validation.Field("quantity", "must be greater than 0")
	case q > math.MaxInt32:
		return validation.Field("quantity", "must be at most %d", math.MaxInt32)
	}
	return nil
}

// AddItem adds a product to an order, snapshotting its current price.
func (s *Service) AddItem(ctx context.Context, who identity.Identity, in ItemInput) (_ *View, err error) {
	ctx, span := s.start(ctx, "AddItem", who)
	defer func() { end(span, err) }()

	if err := validQuantity(in.Quantity); err != nil {
		return nil, err
	}

	var o *Order
	err = s.repo.InTx(ctx, func(q Queries) error {
		var err error
		if o, err = mutable(ctx, q, who, in.OrderUUID, "add items"); err != nil {
			return err
		}
		p, err := q.ActiveProductForShare(ctx, in.ProductUUID)
		if err != nil {
			return err
		}
		switch _, err := q.ItemByProduct(ctx, o.ID, p.ID); {
		case err == nil:
			return &DuplicateItemError{ProductUUID: p.UUID}
		case !errors.Is(err, ErrItemNotFound):
			return fmt.Errorf("find item: %w", err)
		}

		it := &Item{
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  in.Quantity,
			UnitPrice: p.Price,
		}
		if err := q.InsertItem(ctx, it); err != nil {
			if errors.Is(err, ErrItemExists) {
				return &DuplicateItemError{ProductUUID: p.UUID}
			}
			return fmt.Errorf("insert item: %w", err)
		}
		return q.AppendEvent(ctx, newEvent(EventItemAdded, o, s.now(), itemFields(p.UUID, it)))
	})
	if err != nil {
		return nil, err
	}
	s.itemWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "add")))
	return s.view(ctx, o)
}

// UpdateItem replaces the quantity of an existing item. The unit price keeps
// its snapshot.
func (s *Service) UpdateItem(ctx context.Context, who identity.Identity, in ItemInput) (_ *View, err error) {
	ctx, span := s.start(ctx, "UpdateItem", who)
	defer func() { end(span, err) }()

	if err := validQuantity(in.Quantity); err != nil {
		return nil, err
	}

	var o *Order
	err = s.repo.InTx(ctx, func(q Queries) error {
		var (
			it  *Item
			err error
		)
		if o, it, err = s.lockedItem(ctx, q, who, in.OrderUUID, in.ProductUUID, "update items"); err != nil {
			return err
		}
		if err := q.UpdateItemQuantity(ctx, it.ID, in.Quantity); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		it.Quantity = in.Quantity
		return q.AppendEvent(ctx, newEvent(EventItemUpdated, o, s.now(), itemFields(in.ProductUUID, it)))
	})
	if err != nil {
		return nil, err
	}
	s.itemWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))
	return s.view(ctx, o)
}

// RemoveItem deletes the item of a product from one of the caller's orders.
func (s *Service) RemoveItem(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) (err error) {
	ctx, span := s.start(ctx, "RemoveItem", who)
	defer func() { end(span, err) }()

	return s.removeItem(ctx, who, orderID, productID)
}

// RemoveItemAsStaff deletes an item from any order. Staff only; the status
// gate still applies.
func (s *Service) RemoveItemAsStaff(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) (err error) {
	ctx, span := s.start(ctx, "RemoveItemAsStaff", who)
	defer func() { end(span, err) }()

	if err := policy.Check(who, policy.RemoveItemAsStaff, 0, ErrNotFound); err != nil {
		return err
	}
	return s.removeItem(ctx, who, orderID, productID)
}

func (s *Service) removeItem(ctx context.Context, who identity.Identity, orderID, productID uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q Queries) error {
		o, it, err := s.lockedItem(ctx, q, who, orderID, productID, "remove items")
		if err != nil {
			return err
		}
		if err := q.DeleteItem(ctx, it.ID); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return q.AppendEvent(ctx, newEvent(EventItemRemoved, o, s.now(), itemFields(productID, it)))
	})
	if err != nil {
		return err
	}
	s.itemWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "remove")))
	return nil
}

func (s *Service) lockedItem(ctx context.Context, q Queries, who identity.Identity, orderID, productID uuid.UUID, op string) (*Order, *Item, error) {
	o, err := mutable(ctx, q, who, orderID, op)
	if err != nil {
		return nil, nil, err
	}
	p, err := q.ProductByUUID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, nil, ErrItemNotFound
		}
		return nil, nil, err
	}
	it, err := q.ItemByProduct(ctx, o.ID, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return o, it, nil
}

// Lines returns the items of the caller's active orders.
func (s *Service) Lines(ctx context.Context, who identity.Identity) ([]Line, error) {
	views, err := s.ListOrders(ctx, who)
	if err != nil {
		return nil, err
	}
	var lines []Line
	for _, v := range views {
		lines = append(lines, v.Lines...)
	}
	return lines, nil
}

// OrderLines returns the items of one order visible to the caller.
func (s *Service) OrderLines(ctx context.Context, who identity.Identity, id uuid.UUID) ([]Line, error) {
	v, err := s.GetOrder(ctx, who, id)
	if err != nil {
		return nil, err
	}
	return v.Lines, nil
}

// LinesForAudit returns the items of every order. Staff only.
func (s *Service) LinesForAudit(ctx context.Context, who identity.Identity) ([]Line, error) {
	views, err := s.ListForAudit(ctx, who)
	if err != nil {
		return nil, err
	}
	var lines []Line
	for _, v := range views {
		lines = append(lines, v.Lines...)
	}
	return lines, nil
}

// OrderLinesForAudit returns the items of any order. Staff only.
func (s *Service) OrderLinesForAudit(ctx context.Context, who identity.Identity, id uuid.UUID) ([]Line, error) {
	v, err := s.GetForAudit(ctx, who, id)
	if err != nil {
		return nil, err
	}
	return v.Lines, nil
}

func (s *Service) view(ctx context.Context, o *Order) (*View, error) {
	views, err := s.views(ctx, s.repo, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views batch-loads addresses, items and products for orders and projects
// them in the given order.
func (s *Service) views(ctx context.Context, q Queries, orders []Order) ([]View, error) {
	if len(orders) == 0 {
		return []View{}, nil
	}
	orderIDs := make([]int64, len(orders))
	addrIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
		addrIDs[i] = o.AddressID
	}

	addrs, err := q.AddressesByIDs(ctx, addrIDs)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	addrByID := make(map[int64]address.Address, len(addrs))
	for _, a := range addrs {
		addrByID[a.ID] = a
	}

	items, err := q.Items(ctx, orderIDs...)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	itemsByOrder := make(map[int64][]Item, len(orders))
	productIDs := make([]int64, 0, len(items))
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
		productIDs = append(productIDs, it.ProductID)
	}

	products := make(map[int64]product.Product, len(productIDs))
	if len(productIDs) > 0 {
		ps, err := q.ProductsByIDs(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for _, p := range ps {
			products[p.ID] = p
		}
	}

	views := make([]View, len(orders))
	for i, o := range orders {
		views[i] = Project(o, addrByID[o.AddressID], itemsByOrder[o.ID], products)
	}
	return views, nil
}

func (s *Service) staffViews(ctx context.Context, q Queries, orders []Order) ([]StaffView, error) {
	views, err := s.views(ctx, q, orders)
	if err != nil {
		return nil, err
	}
	userIDs := make([]int64, len(orders))
	for i, o := range orders {
		userIDs[i] = o.UserID
	}
	profiles := make(map[int64]user.Profile, len(orders))
	if len(userIDs) > 0 {
		ps, err := q.ProfilesByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		for _, p := range ps {
			profiles[p.ID] = p
		}
	}
	out := make([]StaffView, len(views))
	for i, v := range views {
		out[i] = ProjectStaff(v, profiles[v.Order.UserID])
	}
	return out, nil
}
