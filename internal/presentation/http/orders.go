package httppresentation

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	appOrder "github.com/FacumendezBT/tfu3-andis2/internal/application/order"
	domainOrder "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
)

type createOrderRequest struct {
	CustomerID int64                `json:"customerId"`
	Items      []createOrderItemReq `json:"items"`
}

type createOrderItemReq struct {
	ProductID int64            `json:"productId"`
	Quantity  int              `json:"quantity"`
	Type      string           `json:"type,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	CustomerID  int64               `json:"customerId"`
	OrderDate   time.Time           `json:"orderDate"`
	Status      domainOrder.Status  `json:"status"`
	TotalAmount amount              `json:"totalAmount"`
	Items       []orderItemResponse `json:"items"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type orderItemResponse struct {
	ID        int64                `json:"id"`
	OrderID   int64                `json:"orderId"`
	ProductID *int64               `json:"productId"`
	Quantity  int                  `json:"quantity"`
	UnitPrice amount               `json:"unitPrice"`
	Subtotal  amount               `json:"subtotal"`
	Type      domainOrder.ItemType `json:"type"`
}

type revenueResponse struct {
	TotalRevenue amount `json:"totalRevenue"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		var productID *int64
		if it.ProductID != 0 {
			id := it.ProductID
			productID = &id
		}
		items = append(items, orderItemResponse{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: productID,
			Quantity:  it.Quantity,
			UnitPrice: amount(it.UnitPrice),
			Subtotal:  amount(it.Subtotal),
			Type:      it.Type,
		})
	}
	return orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate.UTC(),
		Status:      o.Status,
		TotalAmount: amount(o.TotalAmount),
		Items:       items,
		UpdatedAt:   o.UpdatedAt.UTC(),
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]appOrder.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = appOrder.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Type:      it.Type,
			UnitPrice: it.UnitPrice,
		}
	}

	o, err := h.orders.Create.Execute(r.Context(), appOrder.CreateOrderInput{
		CustomerID:     req.CustomerID,
		Items:          lines,
		IdempotencyKey: r.Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.orders.Get.Execute(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders, err := h.orders.List.Execute(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRevenue(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	total, err := h.orders.Revenue.Execute(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revenueResponse{TotalRevenue: amount(total)})
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.orders.UpdateStatus.Execute(r.Context(), appOrder.UpdateOrderStatusInput{
		OrderID: id,
		Status:  req.Status,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := h.orders.Delete.Execute(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orderFilter reads customerId, status, from and to. status is parsed
// case-insensitively; from and to are RFC3339.
func orderFilter(r *http.Request) (domainOrder.Filter, error) {
	var (
		f   domainOrder.Filter
		err error
	)
	if f.CustomerID, err = queryID(r, "customerId"); err != nil {
		return f, err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		if f.Status, err = domainOrder.ParseStatus(raw); err != nil {
			return f, err
		}
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}
