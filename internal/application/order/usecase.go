package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

const (
	useCaseOrderCreate       = "order.create"
	useCaseOrderGet          = "order.get"
	useCaseOrderList         = "order.list"
	useCaseOrderUpdateStatus = "order.update_status"
	useCaseOrderDelete       = "order.delete"
	useCaseOrderRevenue      = "order.revenue"
)

// ErrIdempotencyKeyInUse marks a create whose key is held by a request that
// has not finished yet.
var ErrIdempotencyKeyInUse = errors.New("order: idempotency key in use")

func idempotencyKeyInUse() error {
	return apperr.Validation(ErrIdempotencyKeyInUse, "a request with this idempotency key is still in progress")
}

// Deps wires the order use cases. Idempotency, Publisher, Obs and Now are optional.
type Deps struct {
	Tx          TxRunner
	Orders      domain.Repository
	Idempotency IdempotencyStore
	Publisher   domoutbox.Publisher
	Obs         observability.Observability
	Now         func() time.Time
}

// Processor groups the order use cases behind one handle.
type Processor struct {
	Create       *CreateOrderUseCase
	Get          *GetOrderUseCase
	List         *ListOrdersUseCase
	UpdateStatus *UpdateOrderStatusUseCase
	Delete       *DeleteOrderUseCase
	Revenue      *RevenueUseCase
}

func NewProcessor(d Deps) *Processor {
	ins := newInstruments(d.Obs)
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Processor{
		Create:       &CreateOrderUseCase{tx: d.Tx, orders: d.Orders, idem: d.Idempotency, publisher: d.Publisher, now: now, ins: ins},
		Get:          &GetOrderUseCase{orders: d.Orders, ins: ins},
		List:         &ListOrdersUseCase{orders: d.Orders, ins: ins},
		UpdateStatus: &UpdateOrderStatusUseCase{tx: d.Tx, publisher: d.Publisher, now: now, ins: ins},
		Delete:       &DeleteOrderUseCase{tx: d.Tx, publisher: d.Publisher, ins: ins},
		Revenue:      &RevenueUseCase{orders: d.Orders, ins: ins},
	}
}

type LineInput struct {
	ProductID int64
	Quantity  int
	// Type defaults to PRODUCT.
	Type string
	// UnitPrice is only read for DISCOUNT lines; product lines always take the
	// current product price.
	UnitPrice *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID     int64
	Items          []LineInput
	IdempotencyKey string
}

// CreateOrderUseCase validates stock, prices the lines, saves the order and
// debits stock in a single transaction.
type CreateOrderUseCase struct {
	tx        TxRunner
	orders    domain.Repository
	idem      IdempotencyStore
	publisher domoutbox.Publisher
	now       func() time.Time
	ins       instruments
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.Int64("order.customer_id", cmd.CustomerID),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	defer func() { rn.end(err) }()

	if len(cmd.Items) == 0 {
		rn.fail("ITEMS_REQUIRED")
		return nil, domain.NoItems()
	}
	if cmd.CustomerID <= 0 {
		rn.fail("CUSTOMER_ID_REQUIRED")
		return nil, apperr.Validation(domain.ErrCustomerRequired, "customer id is required")
	}
	types := make([]domain.ItemType, len(cmd.Items))
	for i, line := range cmd.Items {
		if line.Quantity <= 0 {
			rn.fail("QUANTITY_INVALID")
			return nil, apperr.Validation(domain.ErrInvalidQuantity, "item %d: quantity must be greater than zero", i)
		}
		t := domain.ItemType(strings.ToUpper(strings.TrimSpace(line.Type)))
		if t == "" {
			t = domain.ItemProduct
		}
		if !t.Valid() {
			rn.fail("ITEM_TYPE_INVALID")
			return nil, apperr.Validation(domain.ErrInvalidItemType, "item %d: invalid type %q", i, line.Type)
		}
		if t == domain.ItemProduct && line.ProductID <= 0 {
			rn.fail("PRODUCT_ID_REQUIRED")
			return nil, apperr.Validation(domain.ErrProductRequired, "item %d: product id is required", i)
		}
		types[i] = t
	}
	if err := ctx.Err(); err != nil {
		rn.fail("CONTEXT_CANCELED")
		return nil, err
	}

	key := strings.TrimSpace(cmd.IdempotencyKey)
	if uc.idem == nil {
		key = ""
	}
	if key != "" {
		existing, claimErr := uc.claim(ctx, key)
		if claimErr != nil {
			if errors.Is(claimErr, ErrIdempotencyKeyInUse) {
				rn.fail("IDEMPOTENCY_KEY_IN_USE")
			} else {
				rn.fail("IDEMPOTENCY_LOOKUP_FAILED")
			}
			return nil, claimErr
		}
		if existing != nil {
			rn.status = "IDEMPOTENT_REPLAY"
			rn.span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.Int64("order.id", existing.ID)),
			)
			return existing, nil
		}
	}

	var created *domain.Order
	err = uc.tx.WithinTx(ctx, func(ctx context.Context, products product.Repository, orders domain.Repository) error {
		items, err := priceLines(ctx, products, cmd.Items, types)
		if err != nil {
			return err
		}
		o, err := domain.New(cmd.CustomerID, items, uc.now())
		if err != nil {
			return err
		}
		saved, err := orders.Save(ctx, o)
		if err != nil {
			return err
		}
		for _, it := range saved.StockLines() {
			if _, err := products.DebitStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		created = saved
		return nil
	})
	if err != nil {
		if key != "" {
			if relErr := uc.idem.Release(context.WithoutCancel(ctx), key); relErr != nil {
				rn.note(observability.F("idempotency_error", relErr.Error()))
			}
		}
		return nil, err
	}
	uc.ins.stockMoved("debit", created.StockLines())

	if key != "" {
		if remErr := uc.idem.Remember(ctx, key, created.ID); remErr != nil {
			rn.note(observability.F("idempotency_error", remErr.Error()))
		}
	}
	if pubErr := uc.ins.publish(ctx, uc.publisher, domain.NewOrderCreatedEvent(created)); pubErr != nil {
		rn.note(observability.F("event_publish_error", pubErr.Error()))
	}

	rn.span.SetAttributes(
		attribute.Int64("order.id", created.ID),
		attribute.String("order.status", created.Status.String()),
		attribute.String("order.total", created.TotalAmount.StringFixed(2)),
	)
	rn.note(observability.F("order_id", created.ID))
	return created, nil
}

// claim reserves key for a new order, or returns the order already created
// under it. A key whose order has since been deleted is freed and claimed
// again.
func (uc *CreateOrderUseCase) claim(ctx context.Context, key string) (*domain.Order, error) {
	for attempt := 0; attempt < 2; attempt++ {
		reserved, err := uc.idem.Reserve(ctx, key)
		if err != nil {
			return nil, apperr.Store("idempotency reserve", err)
		}
		if reserved {
			return nil, nil
		}
		id, found, err := uc.idem.Lookup(ctx, key)
		if err != nil {
			return nil, apperr.Store("idempotency lookup", err)
		}
		if !found {
			// expired between Reserve and Lookup
			continue
		}
		if id == 0 {
			return nil, idempotencyKeyInUse()
		}
		existing, err := uc.orders.Get(ctx, id)
		switch {
		case err == nil:
			return existing, nil
		case errors.Is(err, domain.ErrNotFound):
			if err := uc.idem.Release(ctx, key); err != nil {
				return nil, apperr.Store("idempotency release", err)
			}
		default:
			return nil, err
		}
	}
	return nil, idempotencyKeyInUse()
}

// priceLines validates every line against current stock before anything is
// written. Repeated lines for one product are checked cumulatively.
func priceLines(ctx context.Context, products product.Repository, lines []LineInput, types []domain.ItemType) ([]domain.Item, error) {
	requested := make(map[int64]int, len(lines))
	items := make([]domain.Item, 0, len(lines))
	for i, line := range lines {
		if types[i] == domain.ItemDiscount {
			if line.UnitPrice == nil {
				return nil, apperr.Validation(domain.ErrInvalidUnitPrice, "item %d: discount lines require a unit price", i)
			}
			if line.ProductID != 0 {
				if _, err := products.Get(ctx, line.ProductID); err != nil {
					return nil, err
				}
			}
			it, err := domain.NewDiscountItem(line.ProductID, line.Quantity, *line.UnitPrice)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			continue
		}

		p, err := products.Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		requested[p.ID] += line.Quantity
		if p.Stock < requested[p.ID] {
			return nil, product.InsufficientStock(p.Name)
		}
		it, err := domain.NewProductItem(p.ID, line.Quantity, p.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

type GetOrderUseCase struct {
	orders domain.Repository
	ins    instruments
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, id int64) (_ *domain.Order, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderGet, "GetOrder", attribute.Int64("order.id", id))
	defer func() { rn.end(err) }()

	return uc.orders.Get(ctx, id)
}

type ListOrdersUseCase struct {
	orders domain.Repository
	ins    instruments
}

func (uc *ListOrdersUseCase) Execute(ctx context.Context, f domain.Filter) (_ []*domain.Order, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderList, "ListOrders",
		attribute.Int64("filter.customer_id", f.CustomerID),
		attribute.String("filter.status", f.Status.String()),
	)
	defer func() { rn.end(err) }()

	if f.Status != "" && !f.Status.Valid() {
		rn.fail("INVALID_STATUS")
		return nil, apperr.Validation(domain.ErrInvalidStatus, "invalid status %q", f.Status)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		rn.fail("INVALID_RANGE")
		return nil, apperr.Validation(nil, "date range end is before its start")
	}
	orders, err := uc.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	rn.note(observability.F("count", len(orders)))
	return orders, nil
}

type UpdateOrderStatusInput struct {
	OrderID int64
	Status  string
}

// UpdateOrderStatusUseCase applies a lifecycle transition. Cancelling returns
// the order's product stock in the same transaction.
type UpdateOrderStatusUseCase struct {
	tx        TxRunner
	publisher domoutbox.Publisher
	now       func() time.Time
	ins       instruments
}

func (uc *UpdateOrderStatusUseCase) Execute(ctx context.Context, cmd UpdateOrderStatusInput) (_ *domain.Order, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderUpdateStatus, "UpdateOrderStatus",
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("order.status.requested", cmd.Status),
	)
	defer func() { rn.end(err) }()

	next, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		rn.fail("INVALID_STATUS")
		return nil, err
	}

	var (
		updated *domain.Order
		from    domain.Status
	)
	err = uc.tx.WithinTx(ctx, func(ctx context.Context, products product.Repository, orders domain.Repository) error {
		o, err := orders.Get(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := o.TransitionTo(next, uc.now()); err != nil {
			return err
		}
		if next == domain.StatusCancelled {
			for _, it := range o.StockLines() {
				if _, err := products.CreditStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		updated, err = orders.SetStatus(ctx, o.ID, next, o.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	if next == domain.StatusCancelled {
		uc.ins.stockMoved("credit", updated.StockLines())
	}

	if pubErr := uc.ins.publish(ctx, uc.publisher, domain.NewOrderStatusChangedEvent(updated.ID, from, next)); pubErr != nil {
		rn.note(observability.F("event_publish_error", pubErr.Error()))
	}
	rn.note(observability.F("from", from.String()), observability.F("to", next.String()))
	return updated, nil
}

type DeleteOrderResult struct {
	Restocked bool
}

// DeleteOrderUseCase removes an order, crediting back stock it still holds.
type DeleteOrderUseCase struct {
	tx        TxRunner
	publisher domoutbox.Publisher
	ins       instruments
}

func (uc *DeleteOrderUseCase) Execute(ctx context.Context, id int64) (_ DeleteOrderResult, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderDelete, "DeleteOrder", attribute.Int64("order.id", id))
	defer func() { rn.end(err) }()

	var (
		res      DeleteOrderResult
		credited []domain.Item
	)
	err = uc.tx.WithinTx(ctx, func(ctx context.Context, products product.Repository, orders domain.Repository) error {
		o, err := orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := o.CheckDeletable(); err != nil {
			return err
		}
		if o.HoldsStock() {
			credited = o.StockLines()
			for _, it := range credited {
				if _, err := products.CreditStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		res.Restocked = o.HoldsStock()
		return orders.Delete(ctx, id)
	})
	if err != nil {
		return DeleteOrderResult{}, err
	}
	uc.ins.stockMoved("credit", credited)

	if pubErr := uc.ins.publish(ctx, uc.publisher, domain.NewOrderDeletedEvent(id, res.Restocked)); pubErr != nil {
		rn.note(observability.F("event_publish_error", pubErr.Error()))
	}
	rn.note(observability.F("restocked", res.Restocked))
	return res, nil
}

// RevenueUseCase sums the totals of delivered orders matching the filter.
type RevenueUseCase struct {
	orders domain.Repository
	ins    instruments
}

func (uc *RevenueUseCase) Execute(ctx context.Context, f domain.Filter) (_ decimal.Decimal, err error) {
	ctx, rn := uc.ins.begin(ctx, useCaseOrderRevenue, "Revenue")
	defer func() { rn.end(err) }()

	f.Status = domain.StatusDelivered
	orders, err := uc.orders.List(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	rn.note(observability.F("orders", len(orders)))
	return total, nil
}
