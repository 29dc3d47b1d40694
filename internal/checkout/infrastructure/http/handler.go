package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakline/storefront/internal/auth"
	"github.com/oakline/storefront/internal/checkout/application"
	"github.com/oakline/storefront/internal/checkout/domain"
	"github.com/oakline/storefront/internal/web"
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
		tracer:  otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.createSession)
	r.Get("/sessions/{id}", h.getSession)
	return r
}

type createSessionReq struct {
	Items []domain.CartItem `json:"items"`
}

type createSessionResp struct {
	URL string `json:"url"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckoutSession")
	defer span.End()

	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid body")
		return
	}

	url, err := h.service.CreateSession(ctx, auth.FromContext(ctx), req.Items)
	if err != nil {
		status, msg := checkoutError(err)
		web.Fail(w, status, msg)
		return
	}
	web.OK(w, createSessionResp{URL: url})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCheckoutSession")
	defer span.End()

	session, err := h.service.GetSession(ctx, auth.FromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		status, msg := checkoutError(err)
		web.Fail(w, status, msg)
		return
	}
	web.OK(w, toSessionView(session))
}

// checkoutError maps the taxonomy to a status and the exact user-facing
// message; anything unrecognized is treated as the opaque provider failure.
func checkoutError(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Please sign in to checkout"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "Your cart is empty"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	default:
		return http.StatusBadGateway, "Something went wrong. Please try again."
	}
}

type sessionView struct {
	ID            string                   `json:"id"`
	CustomerEmail string                   `json:"customerEmail,omitempty"`
	CustomerName  string                   `json:"customerName,omitempty"`
	AmountTotal   int64                    `json:"amountTotal"`
	PaymentStatus string                   `json:"paymentStatus"`
	Shipping      *domain.Address          `json:"shippingAddress,omitempty"`
	LineItems     []domain.SessionLineItem `json:"lineItems,omitempty"`
}

func toSessionView(s domain.Session) sessionView {
	return sessionView{
		ID:            s.ID,
		CustomerEmail: s.UserEmail,
		CustomerName:  s.CustomerName,
		AmountTotal:   s.AmountTotal,
		PaymentStatus: s.PaymentStatus,
		Shipping:      s.Shipping,
		LineItems:     s.LineItems,
	}
}
