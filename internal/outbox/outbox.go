// Package outbox relays order events recorded in the outbox table to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Record is a stored outbox event.
type Record struct {
	ID        int64
	EventID   uuid.UUID
	Type      string
	Key       uuid.UUID
	Payload   []byte
	CreatedAt time.Time
	Attempts  int
}

// Store claims pending records.
type Store interface {
	// Claim locks up to limit unsent records with fewer than maxAttempts
	// failed attempts and passes them to fn. It returns the number of records
	// marked sent. When fn fails on a single record, that record's attempt
	// counter is bumped; failed batches are left as they were.
	Claim(ctx context.Context, limit, maxAttempts int, fn func(ctx context.Context, recs []Record) error) (int, error)
	Pending(ctx context.Context) (int64, error)
}

// Publisher delivers a batch of records.
type Publisher interface {
	Publish(ctx context.Context, recs []Record) error
}

// MessageWriter is the part of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes records to a Kafka topic keyed by order UUID, so
// events of one order land on one partition in order.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaWriter returns a writer for topic that hashes message keys.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaPublisher creates a KafkaPublisher on w.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, recs []Record) error {
	msgs := make([]kafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = kafka.Message{
			Key:   []byte(rec.Key.String()),
			Value: rec.Payload,
			Time:  rec.CreatedAt.UTC(),
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID.String())},
				{Key: "event_type", Value: []byte(rec.Type)},
			},
		}
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write messages")
	}
	return nil
}
