package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		is   error
	}{
		{"nil", nil, nil, nil},
		{"unique", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "x_key"}, apperr.ErrValidation, nil},
		{"category fk", &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "product_categories_category_fkey"}, apperr.ErrNotFound, product.ErrCategoryNotFound},
		{"stock check", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "products_stock_check"}), apperr.ErrValidation, product.ErrNegativeStock},
		{"other check", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "orders_status_check"}, apperr.ErrValidation, nil},
		{"no rows", pgx.ErrNoRows, apperr.ErrStore, pgx.ErrNoRows},
		{"connection", errors.New("connection refused"), apperr.ErrStore, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if tt.kind == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.kind)
			if tt.is != nil {
				assert.ErrorIs(t, got, tt.is)
			}
		})
	}
}

func TestClassifyKeepsClassifiedErrors(t *testing.T) {
	nf := product.NotFound(4)
	assert.Same(t, nf, classify("get product", nf))
}

func TestConstraint(t *testing.T) {
	name, ok := constraint(fmt.Errorf("x: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "customers_email_key"}), codeUniqueViolation)
	assert.True(t, ok)
	assert.Equal(t, "customers_email_key", name)

	_, ok = constraint(errors.New("plain"), codeUniqueViolation)
	assert.False(t, ok)
}

func TestNullableID(t *testing.T) {
	assert.Nil(t, nullableID(0))
	if id := nullableID(9); assert.NotNil(t, id) {
		assert.Equal(t, int64(9), *id)
	}
}
