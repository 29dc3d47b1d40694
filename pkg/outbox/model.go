package outbox

import "time"

// Event is one row of the transactional outbox. Rows are written in the same
// transaction as the state change they describe and relayed to Kafka
// asynchronously.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	CreatedAt     time.Time
}
