package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakline/storefront/internal/auth"
	"github.com/oakline/storefront/internal/order/application"
	"github.com/oakline/storefront/internal/order/domain"
	"github.com/oakline/storefront/internal/web"
	"github.com/oakline/storefront/pkg/tracing"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listOrders)
	r.Get("/{id}", h.getOrder)
	return r
}

func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Patch("/{id}/status", h.setStatus)
	return r
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListForUser(ctx, auth.FromContext(ctx))
	if err != nil {
		status, msg := orderError(err)
		web.Fail(w, status, msg)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	web.OK(w, views)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.Get(ctx, auth.FromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		status, msg := orderError(err)
		web.Fail(w, status, msg)
		return
	}
	web.OK(w, toOrderView(o))
}

type setStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetOrderStatus")
	defer span.End()

	if !auth.FromContext(ctx).Admin {
		web.Fail(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid body")
		return
	}

	err := h.service.SetStatus(ctx, chi.URLParam(r, "id"), domain.OrderStatus(req.Status), tracing.Traceparent(ctx))
	if err != nil {
		status, msg := orderError(err)
		web.Fail(w, status, msg)
		return
	}
	web.OK(w, nil)
}

func orderError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, "Status change not allowed"
	default:
		return http.StatusInternalServerError, "Failed to fetch order"
	}
}

type orderView struct {
	ID          string               `json:"id"`
	OrderNumber string               `json:"orderNumber"`
	Status      string               `json:"status"`
	Display     domain.StatusDisplay `json:"statusDisplay"`
	Items       []orderItemView      `json:"items"`
	Shipping    *shippingView        `json:"shippingAddress,omitempty"`
	TotalCents  int64                `json:"totalCents"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type orderItemView struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

type shippingView struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

func toOrderView(o domain.Order) orderView {
	v := orderView{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status.Normalize()),
		Display:     o.Status.Display(),
		Items:       make([]orderItemView, 0, len(o.Items)),
		TotalCents:  o.TotalCents,
		CreatedAt:   o.CreatedAt,
	}
	for _, item := range o.Items {
		v.Items = append(v.Items, orderItemView{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			PriceCents: item.PriceCents,
		})
	}
	if a := o.Shipping; a != nil {
		v.Shipping = &shippingView{
			Name:       a.Name,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}
	return v
}
