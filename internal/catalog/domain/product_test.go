package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestChooseSort_DefaultsToNameAsc(t *testing.T) {
	assert.Equal(t, SortNameAsc, ChooseSort("", ""))
	assert.Equal(t, SortNameAsc, ChooseSort("", SortNameAsc))
	assert.Equal(t, SortNameAsc, ChooseSort("oak", ""))
}

func TestChooseSort_PriceSortsIgnoreSearchTerm(t *testing.T) {
	assert.Equal(t, SortPriceAsc, ChooseSort("", SortPriceAsc))
	assert.Equal(t, SortPriceDesc, ChooseSort("oak", SortPriceDesc))
}

func TestChooseSort_RelevanceNeedsSearchTerm(t *testing.T) {
	assert.Equal(t, SortRelevance, ChooseSort("oak", SortRelevance))
	assert.Equal(t, SortNameAsc, ChooseSort("", SortRelevance))
}

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name        string
		productName string
		description string
		term        string
		want        int
	}{
		{"name prefix only", "Oak Table", "A sturdy dining table", "oak", 3},
		{"description prefix only", "Dining Table", "Oak construction", "oak", 1},
		{"both", "Oak Table", "Oak construction", "oak", 4},
		{"neither", "Dining Table", "Walnut veneer", "oak", 0},
		{"case insensitive", "OAK table", "oak top", "Oak", 4},
		{"substring is not a prefix", "Red Oak Chair", "Solid oak seat", "oak", 0},
		{"empty term", "Oak Table", "Oak construction", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelevanceScore(tt.productName, tt.description, tt.term))
		})
	}
}

func TestFilter_ZeroValuesAreWildcards(t *testing.T) {
	p := Product{
		Name:        "Oak Table",
		Description: "A dining table",
		Price:       decimal.NewFromFloat(249.99),
		Stock:       0,
		Category:    "tables",
		Color:       "brown",
		Material:    "oak",
	}

	assert.True(t, Filter{}.Matches(p), "empty filter matches everything")
	assert.True(t, Filter{CategorySlug: "tables"}.Matches(p))
	assert.False(t, Filter{CategorySlug: "chairs"}.Matches(p))
	assert.False(t, Filter{InStockOnly: true}.Matches(p), "stock filter active")
	assert.True(t, Filter{MaxPrice: decimal.NewFromInt(300)}.Matches(p))
	assert.False(t, Filter{MaxPrice: decimal.NewFromInt(100)}.Matches(p))
	assert.True(t, Filter{MinPrice: decimal.NewFromInt(100)}.Matches(p))
	assert.True(t, Filter{SearchTerm: "oak"}.Matches(p), "name prefix")
	assert.True(t, Filter{SearchTerm: "a din"}.Matches(p), "description prefix")
	assert.False(t, Filter{SearchTerm: "walnut"}.Matches(p))
}
