package order

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
	EventDeleted       = "order.deleted"
)

// EventItem is the line summary carried by OrderCreatedEvent.
type EventItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Type      ItemType        `json:"type"`
}

// OrderCreatedEvent is emitted once an order and its stock debits are committed.
type OrderCreatedEvent struct {
	OrderID     int64           `json:"orderId"`
	CustomerID  int64           `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []EventItem     `json:"items"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

func (OrderCreatedEvent) EventName() string { return EventCreated }

func (e OrderCreatedEvent) EventKey() string { return strconv.FormatInt(e.OrderID, 10) }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Type:      it.Type,
		})
	}
	return OrderCreatedEvent{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		Items:       items,
		OccurredAt:  time.Now().UTC(),
	}
}

type OrderStatusChangedEvent struct {
	OrderID    int64     `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (OrderStatusChangedEvent) EventName() string { return EventStatusChanged }

func (e OrderStatusChangedEvent) EventKey() string { return strconv.FormatInt(e.OrderID, 10) }

func NewOrderStatusChangedEvent(orderID int64, from, to Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    orderID,
		From:       from,
		To:         to,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderDeletedEvent reports a removed order. Restocked is false when the order
// no longer held stock (it had been cancelled).
type OrderDeletedEvent struct {
	OrderID    int64     `json:"orderId"`
	Restocked  bool      `json:"restocked"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (OrderDeletedEvent) EventName() string { return EventDeleted }

func (e OrderDeletedEvent) EventKey() string { return strconv.FormatInt(e.OrderID, 10) }

func NewOrderDeletedEvent(orderID int64, restocked bool) OrderDeletedEvent {
	return OrderDeletedEvent{
		OrderID:    orderID,
		Restocked:  restocked,
		OccurredAt: time.Now().UTC(),
	}
}
