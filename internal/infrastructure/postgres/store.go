// Package postgres stores products, categories, customers and orders in
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url and verifies the connection with a ping.
func Open(ctx context.Context, url string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Products() *ProductRepository { return &ProductRepository{q: s.pool} }

func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{q: s.pool} }

func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{q: s.pool} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{q: s.pool} }

// WithinTx runs fn in one database transaction. Repositories handed to fn
// lock the rows they read until commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, products product.Repository, orders order.Repository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &ProductRepository{q: tx, lock: true}, &OrderRepository{q: tx, lock: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

// atomically runs fn in a transaction, or in a savepoint when q already is one.
func atomically(ctx context.Context, q querier, fn func(q querier) error) error {
	b, ok := q.(interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	})
	if !ok {
		return fn(q)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return classify("commit tx", tx.Commit(ctx))
}

var (
	_ product.Repository         = (*ProductRepository)(nil)
	_ product.CategoryRepository = (*CategoryRepository)(nil)
	_ customer.Repository        = (*CustomerRepository)(nil)
	_ order.Repository           = (*OrderRepository)(nil)
)
