package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer publishes order lifecycle events relayed from the outbox. Topics are
// set per message by the dispatcher, so one writer serves the process.
type Writer struct {
	w *kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.w.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.w.Close()
}
