package kafka

import (
	"context"
	"log/slog"
	"time"

	skafka "github.com/segmentio/kafka-go"
)

// Reader is the part of kafka.Reader the consumer loop uses.
type Reader interface {
	FetchMessage(ctx context.Context) (skafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted so the message is delivered again.
type Handler func(ctx context.Context, key []byte, value []byte) error

type Consumer struct {
	reader         Reader
	logger         *slog.Logger
	processTimeout time.Duration
	retryDelay     time.Duration
}

// NewConsumer joins groupID on topic. Running several copies of a binary with
// the same group splits the partitions between them.
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	r := skafka.NewReader(skafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(r, logger)
}

func NewConsumerWithReader(r Reader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:         r,
		logger:         logger,
		processTimeout: 10 * time.Second,
		retryDelay:     time.Second,
	}
}

// Start runs the fetch/handle/commit loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.logger.Info("kafka consumer started")
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka fetch failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		processCtx, cancel := context.WithTimeout(ctx, c.processTimeout)
		err = handler(processCtx, m.Key, m.Value)
		cancel()
		if err != nil {
			// Not committed: the group redelivers it.
			c.logger.Error("kafka message processing failed", "offset", m.Offset, "partition", m.Partition, "error", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("kafka commit failed", "offset", m.Offset, "error", err)
		}
	}
}

// Close disconnects from the server.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
