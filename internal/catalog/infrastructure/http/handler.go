package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakline/storefront/internal/auth"
	"github.com/oakline/storefront/internal/catalog/application"
	"github.com/oakline/storefront/internal/catalog/domain"
	"github.com/oakline/storefront/internal/web"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.search)
	r.Get("/featured", h.featured)
	r.Get("/{slug}", h.bySlug)
	return r
}

func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/low-stock", h.lowStock)
	r.Get("/out-of-stock", h.outOfStock)
	r.Patch("/{id}", h.updateFields)
	return r
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SearchProducts")
	defer span.End()

	q := r.URL.Query()
	filter := domain.Filter{
		CategorySlug: q.Get("category"),
		Color:        q.Get("color"),
		Material:     q.Get("material"),
		SearchTerm:   q.Get("q"),
		InStockOnly:  q.Get("inStock") == "true",
	}
	if v := q.Get("minPrice"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MinPrice = d
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			filter.MaxPrice = d
		}
	}

	products, err := h.service.Search(ctx, filter, domain.SortKey(q.Get("sort")))
	if err != nil {
		h.log.Error("product search failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	web.OK(w, toViews(products))
}

func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FeaturedProducts")
	defer span.End()

	products, err := h.service.Featured(ctx)
	if err != nil {
		h.log.Error("featured products failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	web.OK(w, toViews(products))
}

func (h *Handler) bySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProductBySlug")
	defer span.End()

	product, err := h.service.BySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, application.ErrProductNotFound) {
		web.Fail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.log.Error("product lookup failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to load product")
		return
	}
	web.OK(w, toView(product))
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LowStockProducts")
	defer span.End()

	if !auth.FromContext(ctx).Admin {
		web.Fail(w, http.StatusForbidden, "Not authorized")
		return
	}

	products, err := h.service.LowStock(ctx)
	if err != nil {
		h.log.Error("low stock list failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	web.OK(w, toViews(products))
}

func (h *Handler) outOfStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OutOfStockProducts")
	defer span.End()

	if !auth.FromContext(ctx).Admin {
		web.Fail(w, http.StatusForbidden, "Not authorized")
		return
	}

	products, err := h.service.OutOfStock(ctx)
	if err != nil {
		h.log.Error("out of stock list failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	web.OK(w, toViews(products))
}

func (h *Handler) updateFields(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProductFields")
	defer span.End()

	if !auth.FromContext(ctx).Admin {
		web.Fail(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req struct {
		Price    *decimal.Decimal `json:"price"`
		Stock    *int             `json:"stock"`
		Featured *bool            `json:"featured"`
		Status   *string          `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		web.Fail(w, http.StatusBadRequest, "Price must not be negative")
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		web.Fail(w, http.StatusBadRequest, "Stock must not be negative")
		return
	}

	err := h.service.UpdateFields(ctx, chi.URLParam(r, "id"), application.FieldPatch{
		Price:    req.Price,
		Stock:    req.Stock,
		Featured: req.Featured,
		Status:   req.Status,
	})
	if errors.Is(err, application.ErrProductNotFound) {
		web.Fail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.log.Error("product update failed", "err", err)
		web.Fail(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	web.OK(w, nil)
}

type productView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category,omitempty"`
	Material    string `json:"material,omitempty"`
	Color       string `json:"color,omitempty"`
	Featured    bool   `json:"featured"`
	ImageURL    string `json:"image,omitempty"`
}

func toView(p domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price.String(),
		Stock:       p.Stock,
		Category:    p.Category,
		Material:    p.Material,
		Color:       p.Color,
		Featured:    p.Featured,
		ImageURL:    p.ImageURL,
	}
}

func toViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toView(p))
	}
	return out
}
