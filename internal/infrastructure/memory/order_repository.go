package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
)

type orderItem = order.Item

type OrderRepository struct {
	s    *Store
	inTx bool
}

// Save stores a copy of o with fresh order and item ids.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) (*order.Order, error) {
	_ = ctx
	var out *order.Order
	err := r.s.write(r.inTx, func(st *state) error {
		st.nextOrder++
		cp := o.Clone()
		cp.ID = st.nextOrder
		for i := range cp.Items {
			st.nextItem++
			cp.Items[i].ID = st.nextItem
			cp.Items[i].OrderID = cp.ID
		}
		st.orders[cp.ID] = cp
		out = cp.Clone()
		return nil
	})
	return out, err
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	_ = ctx
	var out *order.Order
	err := r.s.read(r.inTx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	_ = ctx
	var out []*order.Order
	err := r.s.read(r.inTx, func(st *state) error {
		for _, id := range sortedKeys(st.orders) {
			if o := st.orders[id]; f.Match(o) {
				out = append(out, o.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *OrderRepository) SetStatus(ctx context.Context, id int64, status order.Status, updatedAt time.Time) (*order.Order, error) {
	_ = ctx
	var out *order.Order
	err := r.s.write(r.inTx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		cp := o.Clone()
		cp.Status = status
		cp.UpdatedAt = updatedAt.UTC()
		st.orders[id] = cp
		out = cp.Clone()
		return nil
	})
	return out, err
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx
	return r.s.write(r.inTx, func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return order.NotFound(id)
		}
		delete(st.orders, id)
		return nil
	})
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.SortedFunc(maps.Keys(m), cmp.Compare[int64])
}
