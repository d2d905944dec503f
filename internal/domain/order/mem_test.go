package order

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
)

// memData is the state of memStore. Transactions work on a clone and swap it
// in on commit.
type memData struct {
	nextOrderID int64
	nextItemID  int64
	orders      map[int64]Order
	items       map[int64]Item
	products    map[int64]product.Product
	addrs       map[int64]address.Address
	profiles    map[int64]user.Profile
	events      []Event
}

func (d *memData) clone() *memData {
	return &memData{
		nextOrderID: d.nextOrderID,
		nextItemID:  d.nextItemID,
		orders:      maps.Clone(d.orders),
		items:       maps.Clone(d.items),
		products:    maps.Clone(d.products),
		addrs:       maps.Clone(d.addrs),
		profiles:    maps.Clone(d.profiles),
		events:      slices.Clone(d.events),
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// memStore is an in-memory Repository. Transactions are serialized, which
// stands in for the row lock taken on the order.
type memStore struct {
	*memQueries
	mu sync.Mutex

	failAssign error
}

func newMemStore() *memStore {
	s := &memStore{}
	s.memQueries = &memQueries{
		d: &memData{
			orders:   map[int64]Order{},
			items:    map[int64]Item{},
			products: map[int64]product.Product{},
			addrs:    map[int64]address.Address{},
			profiles: map[int64]user.Profile{},
		},
		lock:  &s.mu,
		store: s,
	}
	return s
}

func (s *memStore) InTx(_ context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.d.clone()
	if err := fn(&memQueries{d: tx, lock: noLock{}, store: s}); err != nil {
		return err
	}
	*s.d = *tx
	return nil
}

func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.clone()
}

func (s *memStore) addProduct(p product.Product) product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.d.products) + 1)
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	s.d.products[p.ID] = p
	return p
}

func (s *memStore) setProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.products[p.ID] = p
}

func (s *memStore) addAddress(a address.Address) address.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.d.addrs) + 1)
	a.UUID = uuid.New()
	a.IsActive = true
	s.d.addrs[a.ID] = a
	return a
}

func (s *memStore) addProfile(p user.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.profiles[p.ID] = p
}

type memQueries struct {
	d     *memData
	lock  sync.Locker
	store *memStore
}

var _ Repository = (*memStore)(nil)

func (m *memQueries) InsertOrder(_ context.Context, o *Order) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.d.nextOrderID++
	o.ID = m.d.nextOrderID
	o.CreatedAt = o.OrderDate
	o.UpdatedAt = o.OrderDate
	m.d.orders[o.ID] = *o
	return nil
}

func (m *memQueries) AssignNumber(_ context.Context, id int64) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.store.failAssign != nil {
		return 0, m.store.failAssign
	}
	o, ok := m.d.orders[id]
	if !ok {
		return 0, ErrNotFound
	}
	if o.Number == 0 {
		o.Number = o.ID
		m.d.orders[id] = o
	}
	return o.Number, nil
}

func (m *memQueries) OrderByUUID(_ context.Context, id uuid.UUID, f Filter) (*Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, o := range m.d.orders {
		if o.UUID == id && (o.IsActive || f.IncludeInactive) {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memQueries) ListOrders(_ context.Context, f ListFilter) ([]Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []Order
	for _, o := range m.d.orders {
		if f.OwnerID != 0 && o.UserID != f.OwnerID {
			continue
		}
		if !o.IsActive && !f.IncludeInactive {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Order) int { return int(b.ID - a.ID) })
	return out, nil
}

func (m *memQueries) UpdateOrder(_ context.Context, o *Order) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	cur, ok := m.d.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = o.Status
	cur.PaymentMethod = o.PaymentMethod
	cur.IsActive = o.IsActive
	m.d.orders[o.ID] = cur
	return nil
}

func (m *memQueries) Items(_ context.Context, orderIDs ...int64) ([]Item, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []Item
	for _, it := range m.d.items {
		if slices.Contains(orderIDs, it.OrderID) {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b Item) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memQueries) ItemByProduct(_ context.Context, orderID, productID int64) (*Item, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, it := range m.d.items {
		if it.OrderID == orderID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, ErrItemNotFound
}

func (m *memQueries) InsertItem(_ context.Context, it *Item) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, cur := range m.d.items {
		if cur.OrderID == it.OrderID && cur.ProductID == it.ProductID {
			return ErrItemExists
		}
	}
	m.d.nextItemID++
	it.ID = m.d.nextItemID
	m.d.items[it.ID] = *it
	return nil
}

func (m *memQueries) UpdateItemQuantity(_ context.Context, id int64, quantity int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	it, ok := m.d.items[id]
	if !ok {
		return ErrItemNotFound
	}
	it.Quantity = quantity
	m.d.items[id] = it
	return nil
}

func (m *memQueries) DeleteItem(_ context.Context, id int64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.d.items, id)
	return nil
}

func (m *memQueries) ActiveProductForShare(_ context.Context, id uuid.UUID) (*product.Product, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, p := range m.d.products {
		if p.UUID == id && p.IsActive {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *memQueries) ProductByUUID(_ context.Context, id uuid.UUID) (*product.Product, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, p := range m.d.products {
		if p.UUID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *memQueries) ProductsByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.d.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memQueries) ActiveAddress(_ context.Context, id uuid.UUID) (*address.Address, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, a := range m.d.addrs {
		if a.UUID == id && a.IsActive {
			return &a, nil
		}
	}
	return nil, address.ErrNotFound
}

func (m *memQueries) AddressesByIDs(_ context.Context, ids []int64) ([]address.Address, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []address.Address
	for _, id := range ids {
		if a, ok := m.d.addrs[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memQueries) ProfilesByIDs(_ context.Context, ids []int64) ([]user.Profile, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var out []user.Profile
	for _, id := range ids {
		if p, ok := m.d.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memQueries) AppendEvent(_ context.Context, e Event) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.d.events = append(m.d.events, e)
	return nil
}
