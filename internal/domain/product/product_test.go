package product_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

func TestNewValidates(t *testing.T) {
	_, err := product.New(" ", "", decimal.NewFromInt(1), 1, nil)
	assert.ErrorIs(t, err, product.ErrNameRequired)

	_, err = product.New("Mug", "", decimal.NewFromInt(-1), 1, nil)
	assert.ErrorIs(t, err, product.ErrInvalidPrice)

	_, err = product.New("Mug", "", decimal.NewFromInt(1), -1, nil)
	assert.ErrorIs(t, err, product.ErrNegativeStock)

	_, err = product.New("Mug", "", decimal.RequireFromString("0.005"), 1, nil)
	assert.ErrorIs(t, err, product.ErrPricePrecision)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = product.New("Mug", "", decimal.RequireFromString("4.500"), 1, nil)
	assert.NoError(t, err, "trailing zeros are whole cents")

	p, err := product.New("Mug", "ceramic", decimal.RequireFromString("5.00"), 10, []int64{3, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, p.CategoryIDs)
	assert.True(t, p.InCategory(3))
}

func TestDebitNeverGoesNegative(t *testing.T) {
	p, err := product.New("Mug", "", decimal.NewFromInt(5), 3, nil)
	require.NoError(t, err)

	err = p.Debit(4)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, product.ErrInsufficientStock)
	assert.EqualError(t, err, "insufficient stock for product Mug")
	assert.Equal(t, 3, p.Stock)

	require.NoError(t, p.Debit(3))
	assert.Equal(t, 0, p.Stock)

	require.NoError(t, p.Credit(2))
	assert.Equal(t, 2, p.Stock)

	assert.ErrorIs(t, p.Debit(0), product.ErrInvalidQuantity)
	assert.ErrorIs(t, p.Credit(-1), product.ErrInvalidQuantity)
}

func TestSetStock(t *testing.T) {
	p, err := product.New("Mug", "", decimal.NewFromInt(5), 3, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, p.SetStock(-1), product.ErrNegativeStock)
	require.NoError(t, p.SetStock(12))
	assert.Equal(t, 12, p.Stock)
}

func TestCloneIsDeep(t *testing.T) {
	p, err := product.New("Mug", "", decimal.NewFromInt(5), 3, []int64{1})
	require.NoError(t, err)

	cp := p.Clone()
	cp.CategoryIDs[0] = 9
	assert.Equal(t, int64(1), p.CategoryIDs[0])
}

func TestNewCategory(t *testing.T) {
	_, err := product.NewCategory("", "")
	assert.ErrorIs(t, err, product.ErrCategoryNameRequired)

	c, err := product.NewCategory(" Kitchen ", "")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", c.Name)
}
