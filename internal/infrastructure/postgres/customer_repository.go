package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
)

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

type CustomerRepository struct {
	q querier
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	out, err := scanCustomer(r.q.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+customerColumns,
		c.Name, c.Email, c.Phone, c.Address, c.CreatedAt))
	if name, ok := constraint(err, codeUniqueViolation); ok && name == "customers_email_key" {
		return nil, customer.EmailTaken(c.Email)
	}
	if err != nil {
		return nil, classify("create customer", err)
	}
	return out, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*customer.Customer, error) {
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, customer.NotFound(id)
	}
	if err != nil {
		return nil, classify("get customer", err)
	}
	return c, nil
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	email = customer.NormalizeEmail(email)
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
	if isNoRows(err) {
		return nil, apperr.NotFound(customer.ErrNotFound, "customer with email %s not found", email)
	}
	if err != nil {
		return nil, classify("get customer by email", err)
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]*customer.Customer, error) {
	rows, err := r.q.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, classify("list customers", err)
	}
	defer rows.Close()

	var out []*customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, classify("list customers", err)
		}
		out = append(out, c)
	}
	return out, classify("list customers", rows.Err())
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	out, err := scanCustomer(r.q.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+customerColumns,
		c.ID, c.Name, c.Email, c.Phone, c.Address))
	if name, ok := constraint(err, codeUniqueViolation); ok && name == "customers_email_key" {
		return nil, customer.EmailTaken(c.Email)
	}
	if isNoRows(err) {
		return nil, customer.NotFound(c.ID)
	}
	if err != nil {
		return nil, classify("update customer", err)
	}
	return out, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return classify("delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return customer.NotFound(id)
	}
	return nil
}
