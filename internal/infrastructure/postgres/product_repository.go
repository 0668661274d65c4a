package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ProductRepository reads with FOR UPDATE when lock is set, which is only
// the case inside WithinTx.
type ProductRepository struct {
	q    querier
	lock bool
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	var out *product.Product
	err := atomically(ctx, r.q, func(q querier) error {
		row := q.QueryRow(ctx, `
			INSERT INTO products (name, description, price, stock, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING `+productColumns,
			p.Name, p.Description, p.Price, p.Stock, p.CreatedAt)
		created, err := scanProduct(row)
		if err != nil {
			return classify("create product", err)
		}
		if err := setCategories(ctx, q, created.ID, p.CategoryIDs); err != nil {
			return err
		}
		created.CategoryIDs = p.CategoryIDs
		out = created
		return nil
	})
	return out, err
}

func (r *ProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, product.NotFound(id)
	}
	if err != nil {
		return nil, classify("get product", err)
	}
	if err := r.loadCategories(ctx, []*product.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if f.CategoryID != 0 {
		query += ` WHERE id IN (SELECT product_id FROM product_categories WHERE category_id = $1)`
		args = append(args, f.CategoryID)
	}
	query += ` ORDER BY id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	var out []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("list products", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	if err := r.loadCategories(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) (*product.Product, error) {
	var out *product.Product
	err := atomically(ctx, r.q, func(q querier) error {
		row := q.QueryRow(ctx, `
			UPDATE products
			SET name = $2, description = $3, price = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING `+productColumns,
			p.ID, p.Name, p.Description, p.Price)
		updated, err := scanProduct(row)
		if isNoRows(err) {
			return product.NotFound(p.ID)
		}
		if err != nil {
			return classify("update product", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, p.ID); err != nil {
			return classify("update product categories", err)
		}
		if err := setCategories(ctx, q, p.ID, p.CategoryIDs); err != nil {
			return err
		}
		updated.CategoryIDs = p.CategoryIDs
		out = updated
		return nil
	})
	return out, err
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if name, ok := constraint(err, codeForeignKeyViolation); ok && name == "order_items_product_fkey" {
		return product.InUse(id)
	}
	if err != nil {
		return classify("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return product.NotFound(id)
	}
	return nil
}

func (r *ProductRepository) SetStock(ctx context.Context, id int64, stock int) (*product.Product, error) {
	if stock < 0 {
		return nil, apperr.Validation(product.ErrNegativeStock, "stock cannot be negative")
	}
	return r.returning(ctx, "set stock", id,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1 RETURNING `+productColumns, id, stock)
}

// DebitStock decrements only when enough stock remains, so concurrent
// debits can never drive it below zero.
func (r *ProductRepository) DebitStock(ctx context.Context, id int64, quantity int) (*product.Product, error) {
	if quantity <= 0 {
		return nil, invalidQuantity()
	}
	row := r.q.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING `+productColumns, id, quantity)
	p, err := scanProduct(row)
	if isNoRows(err) {
		var name string
		switch err := r.q.QueryRow(ctx, `SELECT name FROM products WHERE id = $1`, id).Scan(&name); {
		case isNoRows(err):
			return nil, product.NotFound(id)
		case err != nil:
			return nil, classify("debit stock", err)
		}
		return nil, product.InsufficientStock(name)
	}
	if err != nil {
		return nil, classify("debit stock", err)
	}
	if err := r.loadCategories(ctx, []*product.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) CreditStock(ctx context.Context, id int64, quantity int) (*product.Product, error) {
	if quantity <= 0 {
		return nil, invalidQuantity()
	}
	return r.returning(ctx, "credit stock", id,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1 RETURNING `+productColumns, id, quantity)
}

func invalidQuantity() error {
	return apperr.Validation(product.ErrInvalidQuantity, "quantity must be greater than zero")
}

func (r *ProductRepository) returning(ctx context.Context, op string, id int64, query string, args ...any) (*product.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, product.NotFound(id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	if err := r.loadCategories(ctx, []*product.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func setCategories(ctx context.Context, q querier, productID int64, categoryIDs []int64) error {
	for _, cid := range categoryIDs {
		_, err := q.Exec(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			productID, cid)
		if name, ok := constraint(err, codeForeignKeyViolation); ok && name == "product_categories_category_fkey" {
			return product.CategoryNotFound(cid)
		}
		if err != nil {
			return classify("set product categories", err)
		}
	}
	return nil
}

func (r *ProductRepository) loadCategories(ctx context.Context, ps []*product.Product) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]int64, len(ps))
	byID := make(map[int64]*product.Product, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, category_id FROM product_categories
		WHERE product_id = ANY($1)
		ORDER BY product_id, category_id`, ids)
	if err != nil {
		return classify("load product categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid, cid int64
		if err := rows.Scan(&pid, &cid); err != nil {
			return classify("load product categories", err)
		}
		if p, ok := byID[pid]; ok {
			p.CategoryIDs = append(p.CategoryIDs, cid)
		}
	}
	return classify("load product categories", rows.Err())
}
