package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotAuthenticated = errors.New("please sign in to checkout")
	ErrEmptyCart        = errors.New("your cart is empty")
	// ErrProviderFailure is the only error a caller ever sees for a payment
	// provider problem; the underlying cause stays in the logs.
	ErrProviderFailure = errors.New("something went wrong, please try again")
	ErrSessionNotFound = errors.New("session not found")
)

// CartItem is client-asserted and untrusted. Name, Price and ImageURL are
// advisory: they are used for error messages, never for money-affecting
// decisions.
type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image,omitempty"`
}

// ValidatedItem carries the authoritative price copied from the catalog at
// validation time. Only the validator constructs these; the session builder
// accepts nothing else.
type ValidatedItem struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ImageURL  string
}

// MinorUnits converts the authoritative price to the smallest currency unit,
// rounding halves away from zero: 19.99 -> 1999, 10.005 -> 1001. Decimal
// arithmetic keeps the conversion exact where binary floats would drift.
func (v ValidatedItem) MinorUnits() int64 {
	return v.UnitPrice.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ValidationError aggregates every rejected line item of a checkout attempt.
// Checkout is all-or-nothing: one bad item fails the whole attempt rather
// than silently dropping it.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons, ". ")
}

// Session is the provider-issued checkout transaction. One per attempt; a new
// attempt creates a new session.
type Session struct {
	ID            string
	URL           string
	UserID        string
	UserEmail     string
	PaymentStatus string
	CustomerName  string
	AmountTotal   int64
	Shipping      *Address
	LineItems     []SessionLineItem
	ProductIDs    []string
	Quantities    []int
}

type SessionLineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Amount   int64  `json:"amount"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}
