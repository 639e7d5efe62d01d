package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tanmoy095/loadboard/internal/kafka"
)

// Domain event names published after a successful commit.
const (
	EventLoadPosted        = "load.posted"
	EventBidPlaced         = "bid.placed"
	EventBidAccepted       = "bid.accepted"
	EventLoadCommitted     = "load.committed"
	EventLoadDeclined      = "load.declined"
	EventDepositPaid       = "deposit.paid"
	EventLoadStatusUpdated = "load.status_updated"
	EventLoadRated         = "load.rated"
	EventListingPosted     = "listing.posted"
	EventListingUpdated    = "listing.updated"
	EventListingWithdrawn  = "listing.withdrawn"
)

const publishTimeout = 5 * time.Second

// events publishes fire-and-forget. A nil publisher disables it.
type events struct {
	publisher kafka.Publisher
	logger    *slog.Logger
}

func (e events) publish(key, name string, payload any) {
	if e.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.publisher.Publish(ctx, key, kafka.Event{Event: name, Payload: payload}); err != nil {
			e.logger.Warn("domain event not published", "event", name, "key", key, "error", err)
		}
	}()
}
