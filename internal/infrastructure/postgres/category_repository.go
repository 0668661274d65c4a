package postgres

import (
	"context"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

type CategoryRepository struct {
	q querier
}

func (r *CategoryRepository) Create(ctx context.Context, c *product.Category) (*product.Category, error) {
	out := *c
	err := r.q.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Description).Scan(&out.ID)
	if name, ok := constraint(err, codeUniqueViolation); ok && name == "categories_name_key" {
		return nil, product.CategoryExists(c.Name)
	}
	if err != nil {
		return nil, classify("create category", err)
	}
	return &out, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*product.Category, error) {
	var c product.Category
	err := r.q.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if isNoRows(err) {
		return nil, product.CategoryNotFound(id)
	}
	if err != nil {
		return nil, classify("get category", err)
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*product.Category, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	var out []*product.Category
	for rows.Next() {
		var c product.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, classify("list categories", err)
		}
		out = append(out, &c)
	}
	return out, classify("list categories", rows.Err())
}

func (r *CategoryRepository) Update(ctx context.Context, c *product.Category) (*product.Category, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1`,
		c.ID, c.Name, c.Description)
	if name, ok := constraint(err, codeUniqueViolation); ok && name == "categories_name_key" {
		return nil, product.CategoryExists(c.Name)
	}
	if err != nil {
		return nil, classify("update category", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, product.CategoryNotFound(c.ID)
	}
	out := *c
	return &out, nil
}

// Delete removes the category; product links go with it through ON DELETE CASCADE.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return classify("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return product.CategoryNotFound(id)
	}
	return nil
}
