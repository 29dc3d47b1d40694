package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakline/storefront/internal/catalog/application"
)

func TestEscapeLike_MetacharactersBecomeLiteral(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"oak", "oak"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.term))
		})
	}
}

func TestSortedReservations_LockOrderIndependentOfCartOrder(t *testing.T) {
	forward := sortedReservations([]application.Reservation{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p3", Quantity: 2},
		{ProductID: "p2", Quantity: 3},
	})
	backward := sortedReservations([]application.Reservation{
		{ProductID: "p2", Quantity: 3},
		{ProductID: "p3", Quantity: 2},
		{ProductID: "p1", Quantity: 1},
	})

	assert.Equal(t, forward, backward)
	assert.Equal(t, "p1", forward[0].ProductID)
	assert.Equal(t, "p3", forward[2].ProductID)
}

func TestSortedReservations_DoesNotMutateInput(t *testing.T) {
	in := []application.Reservation{
		{ProductID: "p9", Quantity: 1},
		{ProductID: "p1", Quantity: 2},
	}
	_ = sortedReservations(in)
	assert.Equal(t, "p9", in[0].ProductID, "caller's cart order preserved")
}
