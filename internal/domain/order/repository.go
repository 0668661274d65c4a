package order

import (
	"context"
	"time"
)

// Filter narrows List results. Zero values match everything; From and To
// bound OrderDate inclusively.
type Filter struct {
	CustomerID int64
	Status     Status
	From       time.Time
	To         time.Time
}

func (f Filter) Match(o *Order) bool {
	if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && o.OrderDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.OrderDate.After(f.To) {
		return false
	}
	return true
}

// Repository is the order store. Save assigns the order id, item ids and the
// items' OrderID back-references.
type Repository interface {
	Save(ctx context.Context, o *Order) (*Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	SetStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) (*Order, error)
	Delete(ctx context.Context, id int64) error
}
