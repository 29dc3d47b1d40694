package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oakline/storefront/internal/catalog/domain"
)

// FieldPatch carries the admin-editable product fields. Nil means "leave
// unchanged".
type FieldPatch struct {
	Price    *decimal.Decimal
	Stock    *int
	Featured *bool
	Status   *string
}

// Reservation is one line of an atomic stock decrement.
type Reservation struct {
	ProductID string
	Quantity  int
}

type ProductRepository interface {
	ByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	BySlug(ctx context.Context, slug string) (domain.Product, error)
	Search(ctx context.Context, filter domain.Filter, sort domain.SortKey) ([]domain.Product, error)
	Featured(ctx context.Context) ([]domain.Product, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
	OutOfStock(ctx context.Context) ([]domain.Product, error)
	UpdateFields(ctx context.Context, id string, patch FieldPatch) error

	// ReserveStock decrements stock for every line in one transaction,
	// refusing any line whose decrement would go below zero. On refusal it
	// returns the ids of the failing lines and no stock is consumed.
	ReserveStock(ctx context.Context, lines []Reservation) ([]string, error)
	// ReleaseStock restores a prior reservation.
	ReleaseStock(ctx context.Context, lines []Reservation) error
}
