package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/oakline/storefront/internal/auth"
	checkoutdomain "github.com/oakline/storefront/internal/checkout/domain"
	"github.com/oakline/storefront/internal/order/domain"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrDuplicateSession = errors.New("order already exists for session")
	ErrSessionNotPaid   = errors.New("session is not paid")
)

type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	replay ReplayGuard
}

func NewService(log *slog.Logger, repo OrderRepository, replay ReplayGuard) *Service {
	return &Service{log: log, repo: repo, replay: replay}
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, caller auth.Identity) ([]domain.Order, error) {
	if caller.IsZero() {
		return nil, ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, caller.UserID)
}

// Get fetches one order with an ownership check. A mismatch is reported as
// not-found so non-owners cannot probe for order existence.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (domain.Order, error) {
	if caller.IsZero() {
		return domain.Order{}, ErrNotAuthenticated
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != caller.UserID {
		return domain.Order{}, ErrNotFound
	}
	return o, nil
}

// SetStatus applies an admin status edit through the transition table.
func (s *Service) SetStatus(ctx context.Context, id string, next domain.OrderStatus, traceparent string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	from := o.Status.Normalize()
	if err := o.Transition(next); err != nil {
		return err
	}

	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: o.ID, From: from, To: next})
	if err != nil {
		return err
	}
	return s.repo.UpdateStatusWithOutbox(ctx, id, next, payload, traceparent)
}

// CreateFromSession turns a paid provider session into the persisted order.
// It is idempotent on the session id: the replay guard absorbs most
// redeliveries and the repository's unique constraint catches the rest.
func (s *Service) CreateFromSession(ctx context.Context, session checkoutdomain.Session, traceparent string) (domain.Order, error) {
	if session.PaymentStatus != "paid" {
		return domain.Order{}, ErrSessionNotPaid
	}
	if len(session.ProductIDs) == 0 || len(session.ProductIDs) != len(session.Quantities) {
		return domain.Order{}, fmt.Errorf("malformed session metadata for %s", session.ID)
	}

	guardKey := s.replay.Key(session.ID)
	seen, err := s.replay.Seen(ctx, guardKey)
	if err != nil {
		// Redis being down must not drop orders; fall through to the
		// database constraint.
		s.log.Warn("replay guard unavailable", "err", err)
	} else if seen {
		s.log.Info("webhook replay suppressed", "session_id", session.ID)
		return domain.Order{}, ErrDuplicateSession
	}

	items := make([]domain.OrderItem, 0, len(session.ProductIDs))
	for i, productID := range session.ProductIDs {
		item := domain.OrderItem{ProductID: productID, Quantity: session.Quantities[i]}
		if i < len(session.LineItems) {
			item.Name = session.LineItems[i].Name
			if item.Quantity > 0 {
				item.PriceCents = session.LineItems[i].Amount / int64(item.Quantity)
			}
		}
		items = append(items, item)
	}

	var shipping *domain.ShippingAddress
	if a := session.Shipping; a != nil {
		shipping = &domain.ShippingAddress{
			Name:       session.CustomerName,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	id := uuid.NewString()
	o := domain.NewOrder(id, orderNumber(id), session.UserID, session.ID, items, shipping)
	o.TotalCents = session.AmountTotal

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		SessionID:   o.SessionID,
		TotalCents:  o.TotalCents,
	})
	if err != nil {
		return domain.Order{}, err
	}

	saveErr := s.repo.SaveWithOutbox(ctx, o, "OrderCreated", payload, traceparent)
	if saveErr != nil && !errors.Is(saveErr, ErrDuplicateSession) {
		// The key stays unmarked so the provider's redelivery retries the
		// insert instead of being swallowed as a replay.
		return domain.Order{}, saveErr
	}

	// Marking only now means a session id in redis always has a row behind
	// it, whether this delivery inserted it or the constraint found it.
	if err := s.replay.Mark(ctx, guardKey); err != nil {
		s.log.Warn("replay guard mark failed", "session_id", session.ID, "err", err)
	}
	if saveErr != nil {
		return domain.Order{}, saveErr
	}
	s.log.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "session_id", session.ID)
	return o, nil
}

func orderNumber(id string) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:8]
}
