package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func (s *memStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *memStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

func (s *memStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	return nil
}

type fakeProducer struct {
	mu   sync.Mutex
	msgs []kafka.Message
	fail map[string]bool
}

func (p *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if p.fail[string(m.Key)] {
			return errors.New("broker unavailable")
		}
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func TestRelay_DrainPublishesAndMarksSent(t *testing.T) {
	store := &memStore{pending: []Event{
		{ID: 1, AggregateID: "ord_1", Type: "OrderCreated", Payload: []byte(`{}`), Traceparent: "00-abc-def-01"},
		{ID: 2, AggregateID: "ord_2", Type: "OrderStatusChanged", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{}
	relay := NewRelay(slog.Default(), store, NewDispatcher(slog.Default(), producer, "order-events"), "relay-test")

	require.NoError(t, relay.drain(context.Background()))

	assert.Equal(t, []int64{1, 2}, store.sent)
	require.Len(t, producer.msgs, 2)
	assert.Equal(t, "order-events", producer.msgs[0].Topic)
	assert.Equal(t, []byte("ord_1"), producer.msgs[0].Key)

	headers := map[string]string{}
	for _, h := range producer.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderCreated", headers["event_type"])
	assert.Equal(t, "00-abc-def-01", headers["traceparent"])
}

func TestRelay_FailedRowDoesNotBlockBatch(t *testing.T) {
	store := &memStore{pending: []Event{
		{ID: 1, AggregateID: "ord_1", Type: "OrderCreated", Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "ord_2", Type: "OrderCreated", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{fail: map[string]bool{"ord_1": true}}
	relay := NewRelay(slog.Default(), store, NewDispatcher(slog.Default(), producer, "order-events"), "relay-test")

	require.NoError(t, relay.drain(context.Background()))

	assert.Equal(t, []int64{2}, store.sent)
	assert.Contains(t, store.failed, int64(1))
}
