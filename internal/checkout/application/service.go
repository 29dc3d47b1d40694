package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/oakline/storefront/internal/auth"
	catalog "github.com/oakline/storefront/internal/catalog/application"
	catalogdomain "github.com/oakline/storefront/internal/catalog/domain"
	"github.com/oakline/storefront/internal/checkout/domain"
)

// Countries the provider may collect a shipping address for.
var allowedCountries = []string{"GB", "US", "CA", "AU", "DE", "FR", "ES", "IT"}

type Service struct {
	log      *slog.Logger
	catalog  CatalogReader
	stock    StockReserver
	provider PaymentProvider
	baseURL  string
}

func NewService(log *slog.Logger, catalog CatalogReader, stock StockReserver, provider PaymentProvider, baseURL string) *Service {
	return &Service{
		log:      log,
		catalog:  catalog,
		stock:    stock,
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// CreateSession reconciles the client-asserted cart against the catalog and,
// only if every line validates, reserves stock and opens a provider session.
// Checkout is all-or-nothing: any rejected line fails the whole attempt with
// the reasons for every bad line, in cart order.
func (s *Service) CreateSession(ctx context.Context, caller auth.Identity, items []domain.CartItem) (string, error) {
	if caller.IsZero() {
		return "", domain.ErrNotAuthenticated
	}
	if len(items) == 0 {
		return "", domain.ErrEmptyCart
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.ByIDs(ctx, ids)
	if err != nil {
		s.log.Error("catalog read failed", "err", err)
		return "", domain.ErrProviderFailure
	}
	byID := make(map[string]catalogdomain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		reasons   []string
		validated []domain.ValidatedItem
	)
	for _, item := range items {
		product, ok := byID[item.ProductID]
		switch {
		case !ok:
			// The advisory name is all we have for a vanished product.
			reasons = append(reasons, fmt.Sprintf("Product %q is no longer available", item.Name))
		case product.Stock == 0:
			reasons = append(reasons, fmt.Sprintf("%q is out of stock", product.Name))
		case item.Quantity > product.Stock:
			reasons = append(reasons, fmt.Sprintf("Only %d of %q available", product.Stock, product.Name))
		default:
			validated = append(validated, domain.ValidatedItem{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  item.Quantity,
				ImageURL:  product.ImageURL,
			})
		}
	}
	if len(reasons) > 0 {
		return "", &domain.ValidationError{Reasons: reasons}
	}

	reservations := make([]catalog.Reservation, 0, len(validated))
	for _, v := range validated {
		reservations = append(reservations, catalog.Reservation{ProductID: v.ProductID, Quantity: v.Quantity})
	}
	refused, err := s.stock.ReserveStock(ctx, reservations)
	if err != nil {
		s.log.Error("stock reservation failed", "err", err)
		return "", domain.ErrProviderFailure
	}
	if len(refused) > 0 {
		// A concurrent checkout won the race between validation and the
		// conditional decrement. Same failure shape as validation.
		for _, id := range refused {
			reasons = append(reasons, fmt.Sprintf("%q is no longer available in the requested quantity", byID[id].Name))
		}
		return "", &domain.ValidationError{Reasons: reasons}
	}

	session, err := s.provider.CreateSession(ctx, s.buildRequest(caller, validated))
	if err != nil {
		if rbErr := s.stock.ReleaseStock(ctx, reservations); rbErr != nil {
			s.log.Error("stock release failed after provider error", "err", rbErr)
		}
		s.log.Error("provider session creation failed", "err", err)
		return "", domain.ErrProviderFailure
	}
	return session.URL, nil
}

// buildRequest flattens validated items into the provider's shape. The
// productIds and quantities metadata lists are positionally correlated and
// must never be reordered independently.
func (s *Service) buildRequest(caller auth.Identity, validated []domain.ValidatedItem) SessionRequest {
	lineItems := make([]ProviderLineItem, 0, len(validated))
	productIDs := make([]string, 0, len(validated))
	quantities := make([]string, 0, len(validated))
	for _, v := range validated {
		lineItems = append(lineItems, ProviderLineItem{
			Name:            v.Name,
			ImageURL:        v.ImageURL,
			ProductID:       v.ProductID,
			UnitAmountMinor: v.MinorUnits(),
			Quantity:        v.Quantity,
		})
		productIDs = append(productIDs, v.ProductID)
		quantities = append(quantities, strconv.Itoa(v.Quantity))
	}

	return SessionRequest{
		UserID:    caller.UserID,
		UserEmail: caller.Email,
		LineItems: lineItems,
		Metadata: map[string]string{
			"userId":     caller.UserID,
			"userEmail":  caller.Email,
			"productIds": strings.Join(productIDs, ","),
			"quantities": strings.Join(quantities, ","),
		},
		AllowedCountries: allowedCountries,
		SuccessURL:       s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        s.baseURL + "/checkout",
	}
}

// GetSession retrieves a provider session for the success page. A session
// owned by someone else looks exactly like a missing one.
func (s *Service) GetSession(ctx context.Context, caller auth.Identity, sessionID string) (domain.Session, error) {
	if caller.IsZero() {
		return domain.Session{}, domain.ErrNotAuthenticated
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.log.Error("provider session retrieval failed", "session_id", sessionID, "err", err)
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if session.UserID != caller.UserID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}
