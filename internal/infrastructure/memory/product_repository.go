package memory

import (
	"context"
	"slices"
	"time"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

type ProductRepository struct {
	s    *Store
	inTx bool
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	_ = ctx
	var out *product.Product
	err := r.s.write(r.inTx, func(st *state) error {
		if err := st.checkCategories(p.CategoryIDs); err != nil {
			return err
		}
		st.nextProduct++
		cp := p.Clone()
		cp.ID = st.nextProduct
		st.products[cp.ID] = cp
		out = cp.Clone()
		return nil
	})
	return out, err
}

func (r *ProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	_ = ctx
	var out *product.Product
	err := r.s.read(r.inTx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return product.NotFound(id)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	_ = ctx
	var out []*product.Product
	err := r.s.read(r.inTx, func(st *state) error {
		for _, id := range sortedKeys(st.products) {
			p := st.products[id]
			if f.CategoryID != 0 && !p.InCategory(f.CategoryID) {
				continue
			}
			out = append(out, p.Clone())
		}
		return nil
	})
	return out, err
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) (*product.Product, error) {
	_ = ctx
	var out *product.Product
	err := r.s.write(r.inTx, func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return product.NotFound(p.ID)
		}
		if err := st.checkCategories(p.CategoryIDs); err != nil {
			return err
		}
		cp := p.Clone()
		cp.Stock, cp.CreatedAt = cur.Stock, cur.CreatedAt
		cp.UpdatedAt = time.Now().UTC()
		st.products[cp.ID] = cp
		out = cp.Clone()
		return nil
	})
	return out, err
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	return r.s.write(r.inTx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return product.NotFound(id)
		}
		for _, o := range st.orders {
			if slices.ContainsFunc(o.Items, func(it orderItem) bool { return it.ProductID == id }) {
				return product.InUse(id)
			}
		}
		delete(st.products, id)
		return nil
	})
}

func (r *ProductRepository) SetStock(ctx context.Context, id int64, stock int) (*product.Product, error) {
	return r.mutate(ctx, id, func(p *product.Product) error { return p.SetStock(stock) })
}

// DebitStock is atomic under the store lock: the check and the decrement
// happen in the same critical section.
func (r *ProductRepository) DebitStock(ctx context.Context, id int64, quantity int) (*product.Product, error) {
	return r.mutate(ctx, id, func(p *product.Product) error { return p.Debit(quantity) })
}

func (r *ProductRepository) CreditStock(ctx context.Context, id int64, quantity int) (*product.Product, error) {
	return r.mutate(ctx, id, func(p *product.Product) error { return p.Credit(quantity) })
}

func (r *ProductRepository) mutate(ctx context.Context, id int64, fn func(p *product.Product) error) (*product.Product, error) {
	_ = ctx
	var out *product.Product
	err := r.s.write(r.inTx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return product.NotFound(id)
		}
		cp := p.Clone()
		if err := fn(cp); err != nil {
			return err
		}
		st.products[id] = cp
		out = cp.Clone()
		return nil
	})
	return out, err
}

func (st *state) checkCategories(ids []int64) error {
	for _, id := range ids {
		if _, ok := st.categories[id]; !ok {
			return product.CategoryNotFound(id)
		}
	}
	return nil
}
