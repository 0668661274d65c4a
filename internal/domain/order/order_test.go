package order_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustProductItem(t *testing.T, productID int64, qty int, price string) domain.Item {
	t.Helper()
	it, err := domain.NewProductItem(productID, qty, decimal.RequireFromString(price))
	require.NoError(t, err)
	return it
}

func TestNewComputesTotals(t *testing.T) {
	items := []domain.Item{
		mustProductItem(t, 1, 3, "5.00"),
		mustProductItem(t, 2, 2, "1.25"),
	}

	o, err := domain.New(9, items, now)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, now, o.OrderDate)
	assert.Equal(t, now, o.UpdatedAt)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.RequireFromString("15")))
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("17.50")))
	assert.NoError(t, o.Reconcile())
}

func TestNewRejectsEmptyItemsFirst(t *testing.T) {
	_, err := domain.New(0, nil, now)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrNoItems)
	assert.EqualError(t, err, "order must have at least one item")
}

func TestNewRejectsMissingCustomer(t *testing.T) {
	_, err := domain.New(0, []domain.Item{mustProductItem(t, 1, 1, "1")}, now)
	assert.ErrorIs(t, err, domain.ErrCustomerRequired)
}

func TestItemValidation(t *testing.T) {
	_, err := domain.NewProductItem(1, 0, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = domain.NewProductItem(1, 1, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)

	_, err = domain.NewDiscountItem(0, 1, decimal.NewFromInt(2))
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)

	_, err = domain.NewProductItem(1, 3, decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, err, domain.ErrUnitPricePrecision)

	_, err = domain.NewDiscountItem(0, 3, decimal.RequireFromString("-0.333"))
	assert.ErrorIs(t, err, domain.ErrUnitPricePrecision)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	it, err := domain.NewDiscountItem(0, 3, decimal.RequireFromString("-0.330"))
	require.NoError(t, err)
	assert.Equal(t, "-0.99", it.Subtotal.StringFixed(2))
}

func TestDiscountLines(t *testing.T) {
	disc, err := domain.NewDiscountItem(0, 1, decimal.RequireFromString("-2.50"))
	require.NoError(t, err)
	assert.False(t, disc.AffectsStock())

	o, err := domain.New(1, []domain.Item{mustProductItem(t, 1, 2, "5"), disc}, now)
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("7.50")))
	assert.Len(t, o.StockLines(), 1)

	big, err := domain.NewDiscountItem(0, 1, decimal.RequireFromString("-20"))
	require.NoError(t, err)
	_, err = domain.New(1, []domain.Item{mustProductItem(t, 1, 1, "5"), big}, now)
	assert.ErrorIs(t, err, domain.ErrNegativeTotal)
}

func TestTransitionToRefreshesUpdatedAt(t *testing.T) {
	o, err := domain.New(1, []domain.Item{mustProductItem(t, 1, 1, "1")}, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, o.TransitionTo(domain.StatusConfirmed, later))
	assert.Equal(t, later, o.UpdatedAt)
	assert.Equal(t, now, o.OrderDate)

	err = o.TransitionTo(domain.StatusDelivered, later)
	assert.EqualError(t, err, "cannot transition from CONFIRMED to DELIVERED")
	assert.Equal(t, domain.StatusConfirmed, o.Status)
}

func TestCheckDeletable(t *testing.T) {
	o := &domain.Order{Status: domain.StatusDelivered}
	err := o.CheckDeletable()
	assert.ErrorIs(t, err, domain.ErrDeliveredNotDeletable)
	assert.EqualError(t, err, "delivered orders cannot be deleted")

	o.Status = domain.StatusCancelled
	assert.NoError(t, o.CheckDeletable())
	assert.False(t, o.HoldsStock())
}

func TestReconcileDetectsTampering(t *testing.T) {
	o, err := domain.New(1, []domain.Item{mustProductItem(t, 1, 2, "3")}, now)
	require.NoError(t, err)

	o.TotalAmount = decimal.NewFromInt(1)
	assert.ErrorIs(t, o.Reconcile(), domain.ErrTotalMismatch)
}

func TestFilterMatch(t *testing.T) {
	o := &domain.Order{CustomerID: 4, Status: domain.StatusShipped, OrderDate: now}

	assert.True(t, domain.Filter{}.Match(o))
	assert.True(t, domain.Filter{CustomerID: 4, Status: domain.StatusShipped}.Match(o))
	assert.False(t, domain.Filter{CustomerID: 5}.Match(o))
	assert.False(t, domain.Filter{From: now.Add(time.Minute)}.Match(o))
	assert.True(t, domain.Filter{From: now, To: now}.Match(o))
}
