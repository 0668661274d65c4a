package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/FacumendezBT/tfu3-andis2/internal/application"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
)

// TxRunner commits every store effect of fn, or none of them when fn fails.
// The repositories passed to fn are bound to that single transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, products product.Repository, orders domain.Repository) error) error
}

// IdempotencyStore maps client idempotency keys to created order ids.
// Reserve claims a free key before the order is written and reports false
// when the key is already taken. A reserved key with no order yet looks up
// as found with id 0. Remember records the order under a reserved key and
// Release frees the key again.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Lookup(ctx context.Context, key string) (orderID int64, found bool, err error)
	Remember(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}

var (
	_ application.UseCase[CreateOrderInput, *domain.Order]       = (*CreateOrderUseCase)(nil)
	_ application.UseCase[int64, *domain.Order]                  = (*GetOrderUseCase)(nil)
	_ application.UseCase[domain.Filter, []*domain.Order]        = (*ListOrdersUseCase)(nil)
	_ application.UseCase[UpdateOrderStatusInput, *domain.Order] = (*UpdateOrderStatusUseCase)(nil)
	_ application.UseCase[int64, DeleteOrderResult]              = (*DeleteOrderUseCase)(nil)
	_ application.UseCase[domain.Filter, decimal.Decimal]        = (*RevenueUseCase)(nil)
)
