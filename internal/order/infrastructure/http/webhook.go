package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	checkoutdomain "github.com/oakline/storefront/internal/checkout/domain"
	"github.com/oakline/storefront/internal/order/application"
	"github.com/oakline/storefront/internal/web"
	"github.com/oakline/storefront/pkg/tracing"
)

const signatureHeader = "Webhook-Signature"

// SessionFetcher re-reads the session from the provider so order contents
// come from the provider's record, not from the webhook body.
type SessionFetcher interface {
	RetrieveSession(ctx context.Context, id string) (checkoutdomain.Session, error)
}

// WebhookHandler receives the payment provider's completion callbacks and
// creates the persisted order. Delivery is at-least-once; creation is
// idempotent on the session id.
type WebhookHandler struct {
	log      *slog.Logger
	service  *application.Service
	sessions SessionFetcher
	secret   []byte
}

func NewWebhookHandler(log *slog.Logger, service *application.Service, sessions SessionFetcher, secret string) *WebhookHandler {
	return &WebhookHandler{
		log:      log,
		service:  service,
		sessions: sessions,
		secret:   []byte(secret),
	}
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid body")
		return
	}

	if !h.verifySignature(r.Header.Get(signatureHeader), body) {
		h.log.Warn("webhook signature rejected")
		web.Fail(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if event.Type != "checkout.session.completed" {
		// Acknowledge everything else so the provider stops redelivering.
		web.OK(w, nil)
		return
	}

	session, err := h.sessions.RetrieveSession(r.Context(), event.Data.Object.ID)
	if err != nil {
		h.log.Error("webhook session retrieval failed", "session_id", event.Data.Object.ID, "err", err)
		web.Fail(w, http.StatusBadGateway, "Could not retrieve session")
		return
	}

	o, err := h.service.CreateFromSession(r.Context(), session, tracing.Traceparent(r.Context()))
	switch {
	case errors.Is(err, application.ErrDuplicateSession):
		web.OK(w, nil)
	case errors.Is(err, application.ErrSessionNotPaid):
		web.OK(w, nil)
	case err != nil:
		h.log.Error("order creation from webhook failed", "session_id", session.ID, "err", err)
		web.Fail(w, http.StatusInternalServerError, "Order creation failed")
	default:
		web.OK(w, map[string]string{"orderId": o.ID})
	}
}

// verifySignature checks "t=<ts>,v1=<hex hmac-sha256(secret, ts.body)>".
func (h *WebhookHandler) verifySignature(header string, body []byte) bool {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
