package application

import (
	"context"

	"github.com/oakline/storefront/internal/order/domain"
)

type OrderRepository interface {
	// SaveWithOutbox inserts the order and its lifecycle event in one
	// transaction. A duplicate session id returns ErrDuplicateSession and
	// writes nothing.
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	// UpdateStatusWithOutbox persists only the status field, plus the
	// change event, transactionally.
	UpdateStatusWithOutbox(ctx context.Context, id string, status domain.OrderStatus, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// ReplayGuard short-circuits webhook redeliveries before the database sees
// them. Seen must be read-only; Mark is called only once the order is
// persisted, so a failed save leaves the key clear for the provider's retry.
type ReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	Key(sessionID string) string
}
