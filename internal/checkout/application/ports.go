package application

import (
	"context"

	catalog "github.com/oakline/storefront/internal/catalog/application"
	catalogdomain "github.com/oakline/storefront/internal/catalog/domain"
	"github.com/oakline/storefront/internal/checkout/domain"
)

// CatalogReader fetches authoritative product records for an id set. Ids with
// no matching record are absent from the result.
type CatalogReader interface {
	ByIDs(ctx context.Context, ids []string) ([]catalogdomain.Product, error)
}

// StockReserver is the atomic check-and-decrement at the last moment before
// the irreversible provider commitment.
type StockReserver interface {
	ReserveStock(ctx context.Context, lines []catalog.Reservation) ([]string, error)
	ReleaseStock(ctx context.Context, lines []catalog.Reservation) error
}

// SessionRequest is everything the payment provider needs for one hosted
// checkout session.
type SessionRequest struct {
	UserID           string
	UserEmail        string
	LineItems        []ProviderLineItem
	Metadata         map[string]string
	AllowedCountries []string
	SuccessURL       string
	CancelURL        string
}

type ProviderLineItem struct {
	Name            string
	ImageURL        string
	ProductID       string
	UnitAmountMinor int64
	Quantity        int
}

type PaymentProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (domain.Session, error)
	RetrieveSession(ctx context.Context, id string) (domain.Session, error)
}
