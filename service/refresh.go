package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Tanmoy095/loadboard/internal/fanout"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

// Refresher builds the complete current views clients see and pushes them
// through the notifier. Every push is the whole view, never a delta, so a
// missed push is repaired by the next one or by an explicit request.
type Refresher struct {
	readModel store.ReadModel
	projector *Projector
	notifier  fanout.Notifier
	logger    *slog.Logger

	// market coalesces concurrent on-demand feed reads, e.g. many clients
	// re-requesting after a reconnect. Post-commit pushes never join it.
	market singleflight.Group
}

func NewRefresher(readModel store.ReadModel, projector *Projector, notifier fanout.Notifier, logger *slog.Logger) *Refresher {
	if notifier == nil {
		notifier = fanout.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{readModel: readModel, projector: projector, notifier: notifier, logger: logger}
}

var _ fanout.Views = (*Refresher)(nil)

// MarketView is the flattened active feed, served to clients that ask for it.
func (r *Refresher) MarketView(ctx context.Context) ([]map[string]any, error) {
	v, err, _ := r.market.Do("market", func() (any, error) {
		return r.marketView(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]map[string]any), nil
}

func (r *Refresher) marketView(ctx context.Context) ([]map[string]any, error) {
	items, err := r.projector.GetActiveItems(ctx, DefaultFeedLimit)
	if err != nil {
		return nil, err
	}
	return flattenItems(items), nil
}

func (r *Refresher) ShipperShipments(ctx context.Context, shipperID string) ([]models.Shipment, error) {
	return r.readModel.ShipperShipments(ctx, shipperID)
}

func (r *Refresher) ShipperBids(ctx context.Context, shipperID string) ([]models.ShipperBid, error) {
	return r.readModel.ShipperBids(ctx, shipperID)
}

// The Push methods run after commit. They detach from the caller's
// cancellation so a client hanging up does not cancel the refresh, and they
// only log failures.

func (r *Refresher) PushShipperShipments(ctx context.Context, shipperID string) {
	ctx = context.WithoutCancel(ctx)
	view, err := r.readModel.ShipperShipments(ctx, shipperID)
	if err != nil {
		r.logger.Warn("shipper shipments refresh failed", "shipper_id", shipperID, "error", err)
		return
	}
	r.send(ctx, shipperID, fanout.EventShipperShipmentsUpdate, view)
}

func (r *Refresher) PushShipperBids(ctx context.Context, shipperID string) {
	ctx = context.WithoutCancel(ctx)
	view, err := r.readModel.ShipperBids(ctx, shipperID)
	if err != nil {
		r.logger.Warn("shipper bids refresh failed", "shipper_id", shipperID, "error", err)
		return
	}
	r.send(ctx, shipperID, fanout.EventShipperBidsUpdate, view)
}

func (r *Refresher) PushMarket(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	view, err := r.marketView(ctx)
	if err != nil {
		r.logger.Warn("market refresh failed", "error", err)
		return
	}
	if err := r.notifier.Broadcast(ctx, fanout.EventMarketDataUpdate, view); err != nil {
		r.logger.Warn("market broadcast failed", "error", err)
	}
}

func (r *Refresher) send(ctx context.Context, userID, event string, payload any) {
	if err := r.notifier.SendToUser(ctx, userID, event, payload); err != nil {
		r.logger.Warn("directed push failed", "user_id", userID, "event", event, "error", err)
	}
}

func flattenItems(items []models.MarketplaceItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Flatten())
	}
	return out
}
