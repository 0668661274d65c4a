package order

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var (
	ErrNotFound              = errors.New("order: not found")
	ErrNoItems               = errors.New("order: at least one item is required")
	ErrCustomerRequired      = errors.New("order: customer id is required")
	ErrProductRequired       = errors.New("order: product id is required")
	ErrInvalidQuantity       = errors.New("order: quantity must be greater than zero")
	ErrInvalidUnitPrice      = errors.New("order: invalid unit price")
	ErrUnitPricePrecision    = errors.New("order: unit price has more than two decimal places")
	ErrInvalidItemType       = errors.New("order: invalid item type")
	ErrNegativeTotal         = errors.New("order: total cannot be negative")
	ErrTotalMismatch         = errors.New("order: total does not match items")
	ErrDeliveredNotDeletable = errors.New("order: delivered orders cannot be deleted")
)

type ItemType string

const (
	ItemProduct  ItemType = "PRODUCT"
	ItemDiscount ItemType = "DISCOUNT"
)

func (t ItemType) Valid() bool { return t == ItemProduct || t == ItemDiscount }

// Item is one line of an order. UnitPrice is the product price captured at
// creation; Subtotal is stored and never recomputed on read.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Type      ItemType
}

func NewProductItem(productID int64, quantity int, unitPrice decimal.Decimal) (Item, error) {
	if quantity <= 0 {
		return Item{}, apperr.Validation(ErrInvalidQuantity, "quantity must be greater than zero")
	}
	if unitPrice.IsNegative() {
		return Item{}, apperr.Validation(ErrInvalidUnitPrice, "unit price cannot be negative")
	}
	if !isCents(unitPrice) {
		return Item{}, apperr.Validation(ErrUnitPricePrecision, "unit price cannot have more than two decimal places")
	}
	return Item{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Type:      ItemProduct,
	}, nil
}

// NewDiscountItem builds a discount line. Discounts carry a negative unit price
// and never touch stock.
func NewDiscountItem(productID int64, quantity int, unitPrice decimal.Decimal) (Item, error) {
	if quantity <= 0 {
		return Item{}, apperr.Validation(ErrInvalidQuantity, "quantity must be greater than zero")
	}
	if !unitPrice.IsNegative() {
		return Item{}, apperr.Validation(ErrInvalidUnitPrice, "discount lines require a negative unit price")
	}
	if !isCents(unitPrice) {
		return Item{}, apperr.Validation(ErrUnitPricePrecision, "unit price cannot have more than two decimal places")
	}
	return Item{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Type:      ItemDiscount,
	}, nil
}

func isCents(d decimal.Decimal) bool { return d.Equal(d.Truncate(2)) }

func (i Item) AffectsStock() bool { return i.Type == ItemProduct }

type Order struct {
	ID          int64
	CustomerID  int64
	OrderDate   time.Time
	Status      Status
	TotalAmount decimal.Decimal
	Items       []Item
	UpdatedAt   time.Time
}

// New assembles a PENDING order and computes its total from items.
func New(customerID int64, items []Item, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, NoItems()
	}
	if customerID <= 0 {
		return nil, apperr.Validation(ErrCustomerRequired, "customer id is required")
	}
	total := SumSubtotals(items)
	if total.IsNegative() {
		return nil, apperr.Validation(ErrNegativeTotal, "order total cannot be negative")
	}
	now = now.UTC()
	return &Order{
		CustomerID:  customerID,
		OrderDate:   now,
		Status:      StatusPending,
		TotalAmount: total,
		Items:       slices.Clone(items),
		UpdatedAt:   now,
	}, nil
}

// TransitionTo moves the order to next when the lifecycle allows it.
func (o *Order) TransitionTo(next Status, now time.Time) error {
	if err := CheckTransition(o.Status, next); err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now.UTC()
	return nil
}

// CheckDeletable reports whether the order may be removed.
func (o *Order) CheckDeletable() error {
	if o.Status == StatusDelivered {
		return apperr.Validation(ErrDeliveredNotDeletable, "delivered orders cannot be deleted")
	}
	return nil
}

// HoldsStock reports whether the order's product lines are still debited from
// inventory. Cancellation returns the stock, so a cancelled order holds none.
func (o *Order) HoldsStock() bool { return o.Status != StatusCancelled }

// StockLines returns the lines that debit or credit product stock.
func (o *Order) StockLines() []Item {
	out := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		if it.AffectsStock() {
			out = append(out, it)
		}
	}
	return out
}

// Reconcile verifies the stored totals still agree with the lines.
func (o *Order) Reconcile() error {
	for _, it := range o.Items {
		if !it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))) {
			return apperr.Validation(ErrTotalMismatch, "order %d item %d subtotal does not match quantity and unit price", o.ID, it.ID)
		}
	}
	if !o.TotalAmount.Equal(SumSubtotals(o.Items)) {
		return apperr.Validation(ErrTotalMismatch, "order %d total does not match its items", o.ID)
	}
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func SumSubtotals(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

func NoItems() error {
	return apperr.Validation(ErrNoItems, "order must have at least one item")
}

func NotFound(id int64) error {
	return apperr.NotFound(ErrNotFound, "order %d not found", id)
}
