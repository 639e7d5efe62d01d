package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	skafka "github.com/segmentio/kafka-go"
)

// Writer defines the subset of segmentio kafka.Writer we need. This makes the producer testable.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher is the interface used by services to publish domain events.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// Event is the envelope every domain event travels in.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Producer is a thin wrapper around a kafka writer implementing Publisher.
type Producer struct {
	writer Writer
	logger *slog.Logger
}

// NewProducer creates a Producer that writes to the provided broker/topic.
// Messages are keyed by resource id, so the hash balancer keeps every event
// for one load on one partition.
func NewProducer(brokerURL, topic string, logger *slog.Logger) *Producer {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokerURL),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(w, logger)
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(w Writer, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{writer: w, logger: logger}
}

// Publish marshals the event to JSON and writes a kafka message with the given key.
func (p *Producer) Publish(ctx context.Context, key string, event Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Event, err)
	}
	msg := skafka.Message{Key: []byte(key), Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("kafka write failed", "event", event.Event, "key", key, "error", err)
		return err
	}
	p.logger.Debug("kafka published", "event", event.Event, "key", key)
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
