package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// classify turns driver failures that no repository handled itself into
// apperr kinds. Constraint names come from migrate.go.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Validation(err, "%s: duplicate value violates %s", op, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			if pgErr.ConstraintName == "product_categories_category_fkey" {
				return apperr.NotFound(product.ErrCategoryNotFound, "category not found")
			}
			return apperr.Validation(err, "%s: referenced row missing or still in use", op)
		case codeCheckViolation:
			if pgErr.ConstraintName == "products_stock_check" {
				return apperr.Validation(product.ErrNegativeStock, "stock cannot be negative")
			}
			return apperr.Validation(err, "%s: value violates %s", op, pgErr.ConstraintName)
		}
	}
	return apperr.Store(op, err)
}

func constraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
