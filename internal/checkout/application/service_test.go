package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/storefront/internal/auth"
	catalog "github.com/oakline/storefront/internal/catalog/application"
	catalogdomain "github.com/oakline/storefront/internal/catalog/domain"
	"github.com/oakline/storefront/internal/checkout/domain"
)

type mockCatalog struct {
	products []catalogdomain.Product
	err      error
	calls    int
}

func (m *mockCatalog) ByIDs(ctx context.Context, ids []string) ([]catalogdomain.Product, error) {
	m.calls++
	return m.products, m.err
}

type mockStock struct {
	refused  []string
	err      error
	reserved [][]catalog.Reservation
	released [][]catalog.Reservation
}

func (m *mockStock) ReserveStock(ctx context.Context, lines []catalog.Reservation) ([]string, error) {
	m.reserved = append(m.reserved, lines)
	return m.refused, m.err
}

func (m *mockStock) ReleaseStock(ctx context.Context, lines []catalog.Reservation) error {
	m.released = append(m.released, lines)
	return nil
}

type mockProvider struct {
	created []SessionRequest
	session domain.Session
	err     error
}

func (m *mockProvider) CreateSession(ctx context.Context, req SessionRequest) (domain.Session, error) {
	m.created = append(m.created, req)
	return m.session, m.err
}

func (m *mockProvider) RetrieveSession(ctx context.Context, id string) (domain.Session, error) {
	if m.err != nil {
		return domain.Session{}, m.err
	}
	return m.session, nil
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testService(cat *mockCatalog, stock *mockStock, provider *mockProvider) *Service {
	return NewService(slog.Default(), cat, stock, provider, "https://shop.example")
}

var buyer = auth.Identity{UserID: "user_1", Email: "buyer@example.test"}

func TestCreateSession_Unauthenticated(t *testing.T) {
	cat := &mockCatalog{}
	svc := testService(cat, &mockStock{}, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), auth.Identity{}, []domain.CartItem{
		{ProductID: "p1", Quantity: 1},
	})

	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, cat.calls, "no catalog read before the auth check")
}

func TestCreateSession_EmptyCart(t *testing.T) {
	svc := testService(&mockCatalog{}, &mockStock{}, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), buyer, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	// The auth check still comes first for an empty anonymous cart.
	_, err = svc.CreateSession(context.Background(), auth.Identity{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestCreateSession_UnknownProductNamedInError(t *testing.T) {
	cat := &mockCatalog{products: nil}
	svc := testService(cat, &mockStock{}, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "gone", Name: "Walnut Desk", Quantity: 1},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `Product "Walnut Desk" is no longer available`)
}

func TestCreateSession_OutOfStockNeverInsufficient(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 0},
	}}
	svc := testService(cat, &mockStock{}, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p1", Name: "Oak Table", Quantity: 1},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `"Oak Table" is out of stock`)
	assert.NotContains(t, verr.Error(), "Only")
}

func TestCreateSession_InsufficientStockReportsAvailable(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 3},
	}}
	svc := testService(cat, &mockStock{}, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p1", Name: "Oak Table", Quantity: 5},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `Only 3 of "Oak Table" available`)
}

func TestCreateSession_AggregatesAllRejectionsInCartOrder(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p2", Name: "Oak Table", Price: price("249.99"), Stock: 0},
		{ID: "p3", Name: "Ash Chair", Price: price("89.00"), Stock: 2},
	}}
	stock := &mockStock{}
	svc := testService(cat, stock, &mockProvider{})

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p1", Name: "Lamp", Quantity: 1},
		{ProductID: "p2", Name: "Oak Table", Quantity: 1},
		{ProductID: "p3", Name: "Ash Chair", Quantity: 4},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		`Product "Lamp" is no longer available`,
		`"Oak Table" is out of stock`,
		`Only 2 of "Ash Chair" available`,
	}, verr.Reasons)
	assert.Empty(t, stock.reserved, "no reservation on a failed validation")
}

func TestCreateSession_UsesAuthoritativePrice(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 10},
	}}
	provider := &mockProvider{session: domain.Session{URL: "https://pay.example/cs_1"}}
	svc := testService(cat, &mockStock{}, provider)

	url, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		// Client asserts a tampered price; it must be ignored.
		{ProductID: "p1", Name: "Oak Table", Price: price("0.01"), Quantity: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", url)
	require.Len(t, provider.created, 1)
	req := provider.created[0]
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, int64(24999), req.LineItems[0].UnitAmountMinor)
	assert.Equal(t, 2, req.LineItems[0].Quantity)
	assert.Equal(t, "p1", req.LineItems[0].ProductID)
}

func TestCreateSession_MetadataListsPositionallyCorrelated(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 10},
		{ID: "p2", Name: "Ash Chair", Price: price("89.00"), Stock: 10},
	}}
	provider := &mockProvider{session: domain.Session{URL: "https://pay.example/cs_1"}}
	svc := testService(cat, &mockStock{}, provider)

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p2", Quantity: 3},
		{ProductID: "p1", Quantity: 1},
	})

	require.NoError(t, err)
	md := provider.created[0].Metadata
	assert.Equal(t, "p2,p1", md["productIds"])
	assert.Equal(t, "3,1", md["quantities"])
	assert.Equal(t, buyer.UserID, md["userId"])
	assert.Equal(t, buyer.Email, md["userEmail"])
}

func TestCreateSession_ReservationRaceFailsLikeValidation(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 1},
	}}
	stock := &mockStock{refused: []string{"p1"}}
	provider := &mockProvider{}
	svc := testService(cat, stock, provider)

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p1", Quantity: 1},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, provider.created, "no provider session after a refused reservation")
}

func TestCreateSession_ProviderFailureIsOpaqueAndReleasesStock(t *testing.T) {
	cat := &mockCatalog{products: []catalogdomain.Product{
		{ID: "p1", Name: "Oak Table", Price: price("249.99"), Stock: 5},
	}}
	stock := &mockStock{}
	provider := &mockProvider{err: errors.New("stripe: card_declined at gateway 10.0.0.3")}
	svc := testService(cat, stock, provider)

	_, err := svc.CreateSession(context.Background(), buyer, []domain.CartItem{
		{ProductID: "p1", Quantity: 2},
	})

	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.NotContains(t, err.Error(), "stripe", "provider detail must not leak")
	require.Len(t, stock.released, 1, "reservation rolled back")
	assert.Equal(t, stock.reserved[0], stock.released[0])
}

func TestGetSession_OwnershipMismatchLooksLikeMissing(t *testing.T) {
	provider := &mockProvider{session: domain.Session{ID: "cs_1", UserID: "someone_else"}}
	svc := testService(&mockCatalog{}, &mockStock{}, provider)

	_, err := svc.GetSession(context.Background(), buyer, "cs_1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	provider.err = errors.New("no such session")
	_, err2 := svc.GetSession(context.Background(), buyer, "cs_missing")
	assert.ErrorIs(t, err2, domain.ErrSessionNotFound)
	assert.Equal(t, err, err2)
}

func TestGetSession_OwnerSeesSession(t *testing.T) {
	provider := &mockProvider{session: domain.Session{ID: "cs_1", UserID: buyer.UserID, PaymentStatus: "paid"}}
	svc := testService(&mockCatalog{}, &mockStock{}, provider)

	got, err := svc.GetSession(context.Background(), buyer, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", got.PaymentStatus)
}
