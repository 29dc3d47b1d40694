package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oakline/storefront/internal/checkout/application"
	"github.com/oakline/storefront/internal/checkout/domain"
)

const defaultBaseURL = "https://api.stripe.com"

// Client speaks Stripe's form-encoded checkout-session API. Errors carry the
// provider detail for the logs; callers upstream collapse them to an opaque
// failure.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Client)

// WithBaseURL points the client at a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func (c *Client) CreateSession(ctx context.Context, req application.SessionRequest) (domain.Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("customer_email", req.UserEmail)
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	for i, country := range req.AllowedCountries {
		form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	for i, item := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", "gbp")
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.ImageURL)
		}
		form.Set(prefix+"[price_data][product_data][metadata][productId]", item.ProductID)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmountMinor, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	var body sessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &body); err != nil {
		return domain.Session{}, err
	}
	return body.toDomain(), nil
}

func (c *Client) RetrieveSession(ctx context.Context, id string) (domain.Session, error) {
	path := "/v1/checkout/sessions/" + url.PathEscape(id) +
		"?expand[]=line_items&expand[]=customer_details"

	var body sessionResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return domain.Session{}, err
	}
	return body.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("stripe %s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type sessionResponse struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email   string          `json:"email"`
		Name    string          `json:"name"`
		Address *domain.Address `json:"address"`
	} `json:"customer_details"`
	LineItems *struct {
		Data []struct {
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			AmountTotal int64  `json:"amount_total"`
		} `json:"data"`
	} `json:"line_items"`
}

func (r sessionResponse) toDomain() domain.Session {
	s := domain.Session{
		ID:            r.ID,
		URL:           r.URL,
		PaymentStatus: r.PaymentStatus,
		AmountTotal:   r.AmountTotal,
		UserID:        r.Metadata["userId"],
		UserEmail:     r.Metadata["userEmail"],
	}
	if ids := r.Metadata["productIds"]; ids != "" {
		s.ProductIDs = strings.Split(ids, ",")
	}
	if qs := r.Metadata["quantities"]; qs != "" {
		for _, q := range strings.Split(qs, ",") {
			n, _ := strconv.Atoi(q)
			s.Quantities = append(s.Quantities, n)
		}
	}
	if cd := r.CustomerDetails; cd != nil {
		s.CustomerName = cd.Name
		if cd.Email != "" {
			s.UserEmail = cd.Email
		}
		s.Shipping = cd.Address
	}
	if li := r.LineItems; li != nil {
		for _, d := range li.Data {
			s.LineItems = append(s.LineItems, domain.SessionLineItem{
				Name:     d.Description,
				Quantity: d.Quantity,
				Amount:   d.AmountTotal,
			})
		}
	}
	return s
}
