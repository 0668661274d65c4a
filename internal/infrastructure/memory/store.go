// Package memory implements the stores in process. State lives behind one
// mutex so a transaction can snapshot and restore everything at once.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

type Store struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	products   map[int64]*product.Product
	categories map[int64]*product.Category
	customers  map[int64]*customer.Customer
	orders     map[int64]*order.Order

	nextProduct  int64
	nextCategory int64
	nextCustomer int64
	nextOrder    int64
	nextItem     int64
}

func NewStore() *Store {
	return &Store{st: &state{
		products:   make(map[int64]*product.Product),
		categories: make(map[int64]*product.Category),
		customers:  make(map[int64]*customer.Customer),
		orders:     make(map[int64]*order.Order),
	}}
}

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{s: s} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Ping always succeeds; it mirrors the postgres store's health hook.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// WithinTx runs fn with exclusive access to the store. Any error or panic
// restores the state captured before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, products product.Repository, orders order.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			s.st = snapshot
			panic(r)
		}
	}()

	if err = fn(ctx, &ProductRepository{s: s, inTx: true}, &OrderRepository{s: s, inTx: true}); err != nil {
		s.st = snapshot
	}
	return err
}

// read and write give repositories access to the state. Inside a transaction
// the lock is already held.
func (s *Store) read(inTx bool, fn func(st *state) error) error {
	if !inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.st)
}

func (s *Store) write(inTx bool, fn func(st *state) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

func (st *state) clone() *state {
	cp := *st
	cp.products = make(map[int64]*product.Product, len(st.products))
	for id, p := range st.products {
		cp.products[id] = p.Clone()
	}
	cp.categories = make(map[int64]*product.Category, len(st.categories))
	for id, c := range st.categories {
		cc := *c
		cp.categories[id] = &cc
	}
	cp.customers = maps.Clone(st.customers)
	for id, c := range cp.customers {
		cc := *c
		cp.customers[id] = &cc
	}
	cp.orders = make(map[int64]*order.Order, len(st.orders))
	for id, o := range st.orders {
		cp.orders[id] = o.Clone()
	}
	return &cp
}
