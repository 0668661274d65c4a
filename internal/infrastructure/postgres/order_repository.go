package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
)

const orderColumns = `id, customer_id, order_date, status, total_amount, updated_at`

type OrderRepository struct {
	q    querier
	lock bool
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status, &o.TotalAmount, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	o.OrderDate, o.UpdatedAt = o.OrderDate.UTC(), o.UpdatedAt.UTC()
	return &o, nil
}

// Save inserts the order and its lines, filling in the generated ids.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) (*order.Order, error) {
	out := o.Clone()
	err := atomically(ctx, r.q, func(q querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO orders (customer_id, order_date, status, total_amount, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			o.CustomerID, o.OrderDate, o.Status.String(), o.TotalAmount, o.UpdatedAt).Scan(&out.ID)
		if err != nil {
			return classify("save order", err)
		}
		for i := range out.Items {
			it := &out.Items[i]
			it.OrderID = out.ID
			err := q.QueryRow(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, item_type)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				out.ID, nullableID(it.ProductID), it.Quantity, it.UnitPrice, it.Subtotal, string(it.Type)).Scan(&it.ID)
			if err != nil {
				return classify("save order item", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, order.NotFound(id)
	}
	if err != nil {
		return nil, classify("get order", err)
	}
	if err := r.loadItems(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != 0 {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status.String())
	}
	if !f.From.IsZero() {
		add("order_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("order_date <= $%d", f.To)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify("list orders", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list orders", err)
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) SetStatus(ctx context.Context, id int64, status order.Status, updatedAt time.Time) (*order.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+orderColumns, id, status.String(), updatedAt))
	if isNoRows(err) {
		return nil, order.NotFound(id)
	}
	if err != nil {
		return nil, classify("set order status", err)
	}
	if err := r.loadItems(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete removes the order; its lines go through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return classify("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return order.NotFound(id)
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, COALESCE(product_id, 0), quantity, unit_price, subtotal, item_type
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return classify("load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it       order.Item
			itemType string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &itemType); err != nil {
			return classify("load order items", err)
		}
		it.Type = order.ItemType(itemType)
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return classify("load order items", rows.Err())
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
