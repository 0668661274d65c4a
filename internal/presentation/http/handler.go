package httppresentation

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appCatalog "github.com/FacumendezBT/tfu3-andis2/internal/application/catalog"
	appCustomer "github.com/FacumendezBT/tfu3-andis2/internal/application/customer"
	appOrder "github.com/FacumendezBT/tfu3-andis2/internal/application/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
	tracerName           = "orders.http"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Orders    *appOrder.Processor
	Catalog   *appCatalog.Service
	Customers *appCustomer.Service
	Health    Pinger
	// Metrics serves /metrics; nil falls back to the default Prometheus gatherer.
	Metrics http.Handler
	Obs     observability.Observability
}

type Handler struct {
	orders    *appOrder.Processor
	catalog   *appCatalog.Service
	customers *appCustomer.Service
	health    Pinger
	metrics   http.Handler

	log        observability.Logger
	observe    func(http.Handler) http.Handler
	httpMetric func(http.Handler) http.Handler
}

func NewHandler(d Deps) *Handler {
	obs := observability.OrNop(d.Obs)
	log := obs.Logger().With(observability.F("component", componentHTTPHandler))
	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Handler{
		orders:    d.Orders,
		catalog:   d.Catalog,
		customers: d.Customers,
		health:    d.Health,
		metrics:   metrics,
		log:       log,
		observe: ObservabilityMiddleware(log, func(r *http.Request) string {
			return r.Header.Get(headerRequestID)
		}),
		httpMetric: HTTPMetricsMiddleware(obs.Metrics()),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	h.handle(r, http.MethodPost, "/api/orders", h.handleCreateOrder)
	h.handle(r, http.MethodGet, "/api/orders", h.handleListOrders)
	h.handle(r, http.MethodGet, "/api/orders/revenue", h.handleRevenue)
	h.handle(r, http.MethodGet, "/api/orders/{id}", h.handleGetOrder)
	h.handle(r, http.MethodPut, "/api/orders/{id}", h.handleUpdateOrderStatus)
	h.handle(r, http.MethodDelete, "/api/orders/{id}", h.handleDeleteOrder)

	h.handle(r, http.MethodPost, "/api/products", h.handleCreateProduct)
	h.handle(r, http.MethodGet, "/api/products", h.handleListProducts)
	h.handle(r, http.MethodGet, "/api/products/{id}", h.handleGetProduct)
	h.handle(r, http.MethodPut, "/api/products/{id}", h.handleUpdateProduct)
	h.handle(r, http.MethodDelete, "/api/products/{id}", h.handleDeleteProduct)

	h.handle(r, http.MethodPost, "/api/categories", h.handleCreateCategory)
	h.handle(r, http.MethodGet, "/api/categories", h.handleListCategories)
	h.handle(r, http.MethodGet, "/api/categories/{id}", h.handleGetCategory)
	h.handle(r, http.MethodPut, "/api/categories/{id}", h.handleUpdateCategory)
	h.handle(r, http.MethodDelete, "/api/categories/{id}", h.handleDeleteCategory)

	h.handle(r, http.MethodPost, "/api/customers", h.handleCreateCustomer)
	h.handle(r, http.MethodGet, "/api/customers", h.handleListCustomers)
	h.handle(r, http.MethodGet, "/api/customers/{id}", h.handleGetCustomer)
	h.handle(r, http.MethodPut, "/api/customers/{id}", h.handleUpdateCustomer)
	h.handle(r, http.MethodDelete, "/api/customers/{id}", h.handleDeleteCustomer)

	return r
}

// handle wraps fn as Trace → request logger → access log → HTTP metrics → handler.
// route is the chi pattern and becomes the low-cardinality route label.
func (h *Handler) handle(r chi.Router, method, route string, fn http.HandlerFunc) {
	wrapped := h.withTrace(
		h.observe(
			h.withAccessLog(
				h.httpMetric(fn),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := contextWithRoute(req.Context(), route)
		wrapped.ServeHTTP(w, req.WithContext(ctx))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("health_check_failed", observability.F("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newStatusRecorder(w)

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("remote_addr", r.RemoteAddr),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		ctx, span := tracer.Start(parentCtx,
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := newStatusRecorder(w)
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
