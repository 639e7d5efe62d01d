// Package notifier turns loadboard domain events into email jobs for the
// delivery collaborator.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EmailQueue = "email_jobs"
	GroupID    = "loadboard-notifier"
)

// emailJobTypes maps the events that notify someone by email to the job type
// the email worker understands. Other events are skipped.
var emailJobTypes = map[string]string{
	"bid.placed":     "new_bid_email",
	"bid.accepted":   "bid_accepted_email",
	"load.committed": "driver_committed_email",
	"deposit.paid":   "deposit_secured_email",
}

// Enqueuer publishes a message body to a named queue.
type Enqueuer interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type EmailJob struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

type event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge is the kafka.Handler that enqueues email jobs.
type Bridge struct {
	queue  Enqueuer
	logger *slog.Logger
}

func NewBridge(queue Enqueuer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{queue: queue, logger: logger}
}

// Handle enqueues a job for email-worthy events. A malformed message is
// logged and skipped; a failed enqueue is returned so the message is
// redelivered.
func (b *Bridge) Handle(ctx context.Context, key, value []byte) error {
	var ev event
	if err := json.Unmarshal(value, &ev); err != nil {
		b.logger.Warn("skipping malformed domain event", "key", string(key), "error", err)
		return nil
	}
	jobType, ok := emailJobTypes[ev.Event]
	if !ok {
		return nil
	}
	body, err := json.Marshal(EmailJob{Type: jobType, Event: ev.Event, Key: string(key), Payload: ev.Payload})
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}
	if err := b.queue.Publish(ctx, EmailQueue, body); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	b.logger.Info("email job enqueued", "type", jobType, "key", string(key))
	return nil
}

// Delivery is the part of an amqp.Delivery the email worker uses.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Sender hands a job to the external email service.
type Sender interface {
	Send(ctx context.Context, job EmailJob) error
}

// LogSender stands in for the email provider and only logs the job.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, job EmailJob) error {
	s.Logger.Info("email handed to delivery", "type", job.Type, "key", job.Key)
	return nil
}

// RunEmailWorker drains deliveries until ctx is cancelled or the channel
// closes. Undecodable jobs are dropped; send failures are requeued once.
func RunEmailWorker(ctx context.Context, msgs <-chan amqp.Delivery, sender Sender, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopping")
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			processDelivery(ctx, &d, d.Body, d.Redelivered, sender, logger)
		}
	}
}

func processDelivery(ctx context.Context, d Delivery, body []byte, redelivered bool, sender Sender, logger *slog.Logger) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		logger.Warn("dropping undecodable email job", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := sender.Send(ctx, job); err != nil {
		logger.Warn("email send failed", "type", job.Type, "key", job.Key, "redelivered", redelivered, "error", err)
		_ = d.Nack(false, !redelivered)
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Warn("email job ack failed", "type", job.Type, "error", err)
	}
}
