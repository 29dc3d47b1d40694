package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the authoritative catalog record. Price and stock are only
// trustworthy at the instant of the read; nothing holds them between a read
// and a later use.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Material    string
	Color       string
	Featured    bool
	ImageURL    string
}

type SortKey string

const (
	SortNameAsc   SortKey = "name_asc"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortRelevance SortKey = "relevance"
)

// Filter holds the combinable search predicates. The zero value of each field
// means "do not filter on this dimension"; the UI depends on that sentinel
// convention.
type Filter struct {
	CategorySlug string
	Color        string
	Material     string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	SearchTerm   string
	InStockOnly  bool
}

// ChooseSort picks the query variant for a request. Relevance ranking is only
// meaningful when a search term is present; without one it degrades to the
// name-ascending default.
func ChooseSort(searchTerm string, requested SortKey) SortKey {
	switch requested {
	case SortPriceAsc, SortPriceDesc:
		return requested
	case SortRelevance:
		if searchTerm != "" {
			return SortRelevance
		}
		return SortNameAsc
	default:
		return SortNameAsc
	}
}

// RelevanceScore ranks a product against a search term: a name prefix match
// weighs 3, a description prefix match weighs 1. Callers order by descending
// score with name ascending as the tie-break.
func RelevanceScore(name, description, term string) int {
	if term == "" {
		return 0
	}
	score := 0
	if hasPrefixFold(name, term) {
		score += 3
	}
	if hasPrefixFold(description, term) {
		score++
	}
	return score
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

// Matches reports whether the product passes every active predicate of the
// filter. The repository pushes the same predicates into SQL; this form exists
// for in-process evaluation and as the reference the queries are checked against.
func (f Filter) Matches(p Product) bool {
	if f.CategorySlug != "" && p.Category != f.CategorySlug {
		return false
	}
	if f.Color != "" && p.Color != f.Color {
		return false
	}
	if f.Material != "" && p.Material != f.Material {
		return false
	}
	if !f.MinPrice.IsZero() && p.Price.LessThan(f.MinPrice) {
		return false
	}
	if !f.MaxPrice.IsZero() && p.Price.GreaterThan(f.MaxPrice) {
		return false
	}
	if f.InStockOnly && p.Stock == 0 {
		return false
	}
	if f.SearchTerm != "" && !hasPrefixFold(p.Name, f.SearchTerm) && !hasPrefixFold(p.Description, f.SearchTerm) {
		return false
	}
	return true
}
