package memory

import (
	"context"
	"time"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
)

type CustomerRepository struct {
	s *Store
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	_ = ctx
	var out *customer.Customer
	err := r.s.write(false, func(st *state) error {
		if st.emailTaken(c.Email, 0) {
			return customer.EmailTaken(c.Email)
		}
		st.nextCustomer++
		cp := *c
		cp.ID = st.nextCustomer
		st.customers[cp.ID] = &cp
		res := cp
		out = &res
		return nil
	})
	return out, err
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*customer.Customer, error) {
	_ = ctx
	var out *customer.Customer
	err := r.s.read(false, func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return customer.NotFound(id)
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	_ = ctx
	email = customer.NormalizeEmail(email)
	var out *customer.Customer
	err := r.s.read(false, func(st *state) error {
		for _, c := range st.customers {
			if c.Email == email {
				cp := *c
				out = &cp
				return nil
			}
		}
		return apperr.NotFound(customer.ErrNotFound, "customer with email %s not found", email)
	})
	return out, err
}

func (r *CustomerRepository) List(ctx context.Context) ([]*customer.Customer, error) {
	_ = ctx
	var out []*customer.Customer
	err := r.s.read(false, func(st *state) error {
		for _, id := range sortedKeys(st.customers) {
			cp := *st.customers[id]
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	_ = ctx
	var out *customer.Customer
	err := r.s.write(false, func(st *state) error {
		cur, ok := st.customers[c.ID]
		if !ok {
			return customer.NotFound(c.ID)
		}
		if st.emailTaken(c.Email, c.ID) {
			return customer.EmailTaken(c.Email)
		}
		cp := *c
		cp.CreatedAt = cur.CreatedAt
		cp.UpdatedAt = time.Now().UTC()
		st.customers[c.ID] = &cp
		res := cp
		out = &res
		return nil
	})
	return out, err
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	return r.s.write(false, func(st *state) error {
		if _, ok := st.customers[id]; !ok {
			return customer.NotFound(id)
		}
		delete(st.customers, id)
		return nil
	})
}

func (st *state) emailTaken(email string, except int64) bool {
	for id, c := range st.customers {
		if id != except && c.Email == email {
			return true
		}
	}
	return false
}
