package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(ctx context.Context, c *product.Category) (*product.Category, error) {
	_ = ctx
	var out *product.Category
	err := r.s.write(false, func(st *state) error {
		if st.categoryNameTaken(c.Name, 0) {
			return product.CategoryExists(c.Name)
		}
		st.nextCategory++
		cp := *c
		cp.ID = st.nextCategory
		st.categories[cp.ID] = &cp
		out = &product.Category{ID: cp.ID, Name: cp.Name, Description: cp.Description}
		return nil
	})
	return out, err
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*product.Category, error) {
	_ = ctx
	var out *product.Category
	err := r.s.read(false, func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return product.CategoryNotFound(id)
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r *CategoryRepository) List(ctx context.Context) ([]*product.Category, error) {
	_ = ctx
	var out []*product.Category
	err := r.s.read(false, func(st *state) error {
		for _, id := range sortedKeys(st.categories) {
			cp := *st.categories[id]
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *CategoryRepository) Update(ctx context.Context, c *product.Category) (*product.Category, error) {
	_ = ctx
	var out *product.Category
	err := r.s.write(false, func(st *state) error {
		if _, ok := st.categories[c.ID]; !ok {
			return product.CategoryNotFound(c.ID)
		}
		if st.categoryNameTaken(c.Name, c.ID) {
			return product.CategoryExists(c.Name)
		}
		cp := *c
		st.categories[c.ID] = &cp
		res := cp
		out = &res
		return nil
	})
	return out, err
}

// Delete removes the category and detaches it from every product.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	return r.s.write(false, func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return product.CategoryNotFound(id)
		}
		delete(st.categories, id)
		for _, p := range st.products {
			p.CategoryIDs = slices.DeleteFunc(p.CategoryIDs, func(c int64) bool { return c == id })
		}
		return nil
	})
}

func (st *state) categoryNameTaken(name string, except int64) bool {
	for id, c := range st.categories {
		if id != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
