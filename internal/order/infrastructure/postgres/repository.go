package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakline/storefront/internal/order/application"
	"github.com/oakline/storefront/internal/order/domain"
	"github.com/oakline/storefront/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `INSERT INTO orders
			(id, order_number, user_id, session_id, status, total_cents, ship_name, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (session_id) DO NOTHING`,
		o.ID, o.OrderNumber, o.UserID, o.SessionID, string(o.Status.Normalize()), o.TotalCents,
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.Name }),
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.Line1 }),
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.Line2 }),
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.City }),
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.PostalCode }),
		shipField(o.Shipping, func(a *domain.ShippingAddress) string { return a.Country }),
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		// The provider redelivered a webhook the replay guard missed.
		return application.ErrDuplicateSession
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, name, quantity, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, item.ProductID, item.Name, item.Quantity, item.PriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", o.ID, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) UpdateStatusWithOutbox(ctx context.Context, id string, status domain.OrderStatus, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return application.ErrNotFound
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", id, "OrderStatusChanged", payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, order_number, user_id, session_id, status, total_cents,
	ship_name, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country,
	created_at, updated_at`

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := r.scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	var shipName, shipLine1, shipLine2, shipCity, shipPostal, shipCountry *string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.SessionID, &status, &o.TotalCents,
		&shipName, &shipLine1, &shipLine2, &shipCity, &shipPostal, &shipCountry,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status).Normalize()
	if shipLine1 != nil {
		o.Shipping = &domain.ShippingAddress{
			Name:       deref(shipName),
			Line1:      deref(shipLine1),
			Line2:      deref(shipLine2),
			City:       deref(shipCity),
			PostalCode: deref(shipPostal),
			Country:    deref(shipCountry),
		}
	}
	return o, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, quantity, price_cents FROM order_items WHERE order_id = ANY($1) ORDER BY id`,
		orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.PriceCents); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

func shipField(a *domain.ShippingAddress, get func(*domain.ShippingAddress) string) *string {
	if a == nil {
		return nil
	}
	v := get(a)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, traceparent, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var event outbox.Event
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &event.Traceparent, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + $2::interval WHERE id = ANY($3)`,
		relayID, lease.String(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent' WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='failed', last_error=$2, retry_count=retry_count+1 WHERE id=$1`, id, errMsg)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET lease_until=now() + $1::interval WHERE id = ANY($2) AND relay_id=$3`, lease.String(), ids, relayID)
	return err
}
