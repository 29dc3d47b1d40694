package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store suppresses replayed webhook deliveries. Keys are provider checkout
// session ids; the database unique index on orders.session_id is the
// authoritative guard, this is the cheap first line.
//
// Seen never writes: a key is marked only after the order actually persisted,
// so a transient save failure leaves the key clear and the provider's retry
// goes through.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(sessionID string) string {
	return "webhook:session:" + sessionID
}

// Seen reports whether the key has been marked.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	err := s.rdb.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records the key for the TTL window.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
