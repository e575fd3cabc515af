// Package events publishes ledger ingestion events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// TypeLedgerIngested is the event type emitted after a committed ingestion.
const TypeLedgerIngested = "ledger.ingested"

// LedgerIngested describes one committed ingestion.
type LedgerIngested struct {
	Type       string    `json:"type"`
	Imported   int       `json:"imported"`
	Updated    int       `json:"updated"`
	Source     string    `json:"source"`
	SourceIDs  []string  `json:"source_ids"`
	IngestedAt time.Time `json:"ingested_at"`
}

// NewLedgerIngested builds a LedgerIngested event stamped with the current time.
func NewLedgerIngested(imported, updated int, source string, sourceIDs []string) LedgerIngested {
	return LedgerIngested{
		Type:       TypeLedgerIngested,
		Imported:   imported,
		Updated:    updated,
		Source:     source,
		SourceIDs:  sourceIDs,
		IngestedAt: time.Now().UTC(),
	}
}

// Publisher delivers ingestion events.
type Publisher interface {
	Publish(ctx context.Context, event LedgerIngested) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Publish writes one message. It blocks until the broker acknowledges or ctx ends.
func (p *KafkaPublisher) Publish(ctx context.Context, event LedgerIngested) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", "type", event.Type, "topic", p.writer.Topic)
	return nil
}

// Close flushes pending writes
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event LedgerIngested) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.Source),
		Value: data,
		Time:  event.IngestedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// NopPublisher discards events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerIngested) error { return nil }
func (NopPublisher) Close() error                                  { return nil }
