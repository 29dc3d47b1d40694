package application

import (
	"context"
	"errors"

	"github.com/oakline/storefront/internal/catalog/domain"
)

var ErrProductNotFound = errors.New("product not found")

type Service struct {
	repo ProductRepository
}

func NewService(repo ProductRepository) *Service {
	return &Service{repo: repo}
}

// ByIDs returns the authoritative records for the ids that still exist.
// Missing ids are simply absent from the result, not an error.
func (s *Service) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.ByIDs(ctx, dedupe(ids))
}

func (s *Service) BySlug(ctx context.Context, slug string) (domain.Product, error) {
	return s.repo.BySlug(ctx, slug)
}

// Search applies the filter and resolves the requested sort through the
// selection rule before querying.
func (s *Service) Search(ctx context.Context, filter domain.Filter, requested domain.SortKey) ([]domain.Product, error) {
	sort := domain.ChooseSort(filter.SearchTerm, requested)
	return s.repo.Search(ctx, filter, sort)
}

func (s *Service) Featured(ctx context.Context) ([]domain.Product, error) {
	return s.repo.Featured(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) OutOfStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.OutOfStock(ctx)
}

func (s *Service) UpdateFields(ctx context.Context, id string, patch FieldPatch) error {
	return s.repo.UpdateFields(ctx, id, patch)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
