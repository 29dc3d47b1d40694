package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the allowed next-state set per current state. Forward-only
// through the fulfilment path; cancellation reachable from any non-terminal
// state; delivered and cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Normalize maps an absent or unknown status to pending, the implicit
// initial state.
func (s OrderStatus) Normalize() OrderStatus {
	if _, ok := transitions[s]; !ok {
		return StatusPending
	}
	return s
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s.Normalize()] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	SessionID   string
	Status      OrderStatus
	Items       []OrderItem
	Shipping    *ShippingAddress
	TotalCents  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem captures the price at purchase time; it is never recomputed from
// the catalog.
type OrderItem struct {
	ProductID  string
	Name       string
	Quantity   int
	PriceCents int64
}

type ShippingAddress struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
}

// Transition moves the order to next, enforcing the transition table. Status
// is the only field an edit may touch.
func (o *Order) Transition(next OrderStatus) error {
	current := o.Status.Normalize()
	if !current.CanTransitionTo(next) {
		return ErrIllegalTransition
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func NewOrder(id, orderNumber, userID, sessionID string, items []OrderItem, shipping *ShippingAddress) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.PriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:          id,
		OrderNumber: orderNumber,
		UserID:      userID,
		SessionID:   sessionID,
		Status:      StatusPaid,
		Items:       items,
		Shipping:    shipping,
		TotalCents:  total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
