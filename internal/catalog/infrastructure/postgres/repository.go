package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakline/storefront/internal/catalog/application"
	"github.com/oakline/storefront/internal/catalog/domain"
)

const productColumns = `id, name, slug, description, price, stock, category_slug, material, color, featured, image_url`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND status = 'active'`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repository) BySlug(ctx context.Context, slug string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1 AND status = 'active'`, slug)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, application.ErrProductNotFound
	}
	return p, err
}

// Search pushes the filter's wildcard sentinels into SQL: an empty string or
// zero disables its predicate, matching the shape the UI relies on. One of
// four orderings applies per the sort selector; relevance weighs a name prefix
// match 3x a description prefix match, name ascending as tie-break.
func (r *Repository) Search(ctx context.Context, f domain.Filter, sort domain.SortKey) ([]domain.Product, error) {
	var (
		cols    = productColumns
		orderBy string
	)
	switch sort {
	case domain.SortPriceAsc:
		orderBy = `price ASC`
	case domain.SortPriceDesc:
		orderBy = `price DESC`
	case domain.SortRelevance:
		cols += `,
			(CASE WHEN name ILIKE $6 || '%' ESCAPE '\' THEN 3 ELSE 0 END
			 + CASE WHEN description ILIKE $6 || '%' ESCAPE '\' THEN 1 ELSE 0 END) AS score`
		orderBy = `score DESC, name ASC`
	default:
		orderBy = `name ASC`
	}

	query := `SELECT ` + cols + ` FROM products
		WHERE status = 'active'
		  AND ($1 = '' OR category_slug = $1)
		  AND ($2 = '' OR color = $2)
		  AND ($3 = '' OR material = $3)
		  AND ($4::numeric = 0 OR price >= $4)
		  AND ($5::numeric = 0 OR price <= $5)
		  AND ($6 = '' OR name ILIKE $6 || '%' ESCAPE '\' OR description ILIKE $6 || '%' ESCAPE '\')
		  AND ($7 = false OR stock > 0)
		ORDER BY ` + orderBy

	rows, err := r.pool.Query(ctx, query,
		f.CategorySlug, f.Color, f.Material, f.MinPrice, f.MaxPrice, escapeLike(f.SearchTerm), f.InStockOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if sort == domain.SortRelevance {
		return scanProductsWithScore(rows)
	}
	return scanProducts(rows)
}

func (r *Repository) Featured(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE featured AND stock > 0 AND status = 'active' ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repository) LowStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock > 0 AND stock <= 5 ORDER BY stock ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repository) OutOfStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock = 0 ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repository) UpdateFields(ctx context.Context, id string, patch application.FieldPatch) error {
	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.Featured != nil {
		add("featured", *patch.Featured)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if len(sets) == 0 {
		return nil
	}

	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return application.ErrProductNotFound
	}
	return nil
}

// ReserveStock is the atomic check-and-decrement guarding against oversell:
// each line is a conditional update refusing to go below zero, and all lines
// commit or none do. Refused lines are reported so validation can name them.
// Rows are always locked in product-id order; two carts holding the same
// products in opposite order would otherwise deadlock each other.
func (r *Repository) ReserveStock(ctx context.Context, lines []application.Reservation) ([]string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var refused []string
	for _, line := range sortedReservations(lines) {
		ct, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			refused = append(refused, line.ProductID)
		}
	}
	if len(refused) > 0 {
		return refused, nil
	}
	return nil, tx.Commit(ctx)
}

func (r *Repository) ReleaseStock(ctx context.Context, lines []application.Reservation) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(`UPDATE products SET stock = stock + $2 WHERE id = $1`,
			line.ProductID, line.Quantity)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// escapeLike makes a search term a literal LIKE prefix: %, _ and the escape
// character itself lose their metacharacter meaning.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func sortedReservations(lines []application.Reservation) []application.Reservation {
	out := make([]application.Reservation, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.Material, &p.Color, &p.Featured, &p.ImageURL)
	return p, err
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProductsWithScore(rows pgx.Rows) ([]domain.Product, error) {
	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var score int
		err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
			&p.Category, &p.Material, &p.Color, &p.Featured, &p.ImageURL, &score)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
