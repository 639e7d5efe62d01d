package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Tanmoy095/loadboard/internal/currency"
	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
)

// Projector keeps marketplace_items in step with shipments and listings.
// Callers run Sync and Remove inside the transaction of the source write.
type Projector struct {
	store     store.MarketplaceStore
	formatter *currency.Formatter
	logger    *slog.Logger
}

func NewProjector(st store.MarketplaceStore, formatter *currency.Formatter, logger *slog.Logger) *Projector {
	if formatter == nil {
		formatter = currency.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{store: st, formatter: formatter, logger: logger}
}

// Sync upserts the projection of a *Shipment, *VehicleListing or
// *GoodsListing and returns the stored item.
func (p *Projector) Sync(ctx context.Context, source any) (*models.MarketplaceItem, error) {
	var item *models.MarketplaceItem
	switch src := source.(type) {
	case *models.Shipment:
		item = p.fromShipment(src)
	case *models.VehicleListing:
		item = p.fromVehicle(src)
	case *models.GoodsListing:
		item = p.fromGoods(src)
	default:
		return nil, domainErrors.Validation("source", "unsupported marketplace source")
	}
	if err := p.store.UpsertItem(ctx, item); err != nil {
		return nil, err
	}
	p.logger.Debug("marketplace item synced", "external_id", item.ExternalID, "status", item.Status)
	return item, nil
}

// Remove soft-deletes the item; the row keeps its external_id.
func (p *Projector) Remove(ctx context.Context, externalID string) error {
	return p.store.SetItemStatus(ctx, externalID, models.ItemRemoved)
}

// GetItem resolves an item by its external id in any status, so a withdrawn
// listing reads as Removed instead of disappearing.
func (p *Projector) GetItem(ctx context.Context, externalID string) (*models.MarketplaceItem, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, domainErrors.Validation("external_id", "is required")
	}
	return p.store.GetItemByExternalID(ctx, externalID)
}

// GetActiveItems returns the newest Active items. limit <= 0 means the
// default, and limits above MaxFeedLimit are capped.
func (p *Projector) GetActiveItems(ctx context.Context, limit int) ([]models.MarketplaceItem, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	return p.store.ListItemsByStatus(ctx, models.ItemActive, limit)
}

// PriceString renders the display price, or OpenToBids when unset.
func (p *Projector) PriceString(price *float64) string {
	if price == nil {
		return models.OpenToBids
	}
	return p.formatter.Format(*price)
}

// ItemStatusFor maps a shipment status to its marketplace visibility.
func ItemStatusFor(status models.ShipmentStatus) models.ItemStatus {
	switch status {
	case models.StatusBiddingOpen, models.StatusFindingDriver:
		return models.ItemActive
	case models.StatusCancelled, models.StatusRejected:
		return models.ItemRemoved
	default:
		return models.ItemHandshake
	}
}

func (p *Projector) fromShipment(s *models.Shipment) *models.MarketplaceItem {
	return &models.MarketplaceItem{
		ExternalID:  models.CargoExternalID(s.ID),
		Type:        models.ItemCargo,
		Title:       s.Cargo,
		Description: s.Route(),
		Price:       s.Price,
		PriceStr:    p.PriceString(s.Price),
		Location:    s.Origin,
		Images:      s.Images,
		OwnerID:     s.ShipperID,
		Status:      ItemStatusFor(s.Status),
		Metadata: map[string]any{
			"load_id":     s.ID,
			"origin":      s.Origin,
			"destination": s.Destination,
			"route":       s.Route(),
			"weight":      s.Weight,
			"quantity":    s.Quantity,
			"pickup_date": s.PickupDate,
			"load_status": string(s.Status),
			"bid_count":   s.BidderIDs.Len(),
		},
	}
}

func (p *Projector) fromVehicle(v *models.VehicleListing) *models.MarketplaceItem {
	return &models.MarketplaceItem{
		ExternalID:   models.VehicleExternalID(v.ID),
		Type:         models.ItemTransport,
		Title:        v.Title,
		Description:  v.Description,
		Price:        v.Price,
		PriceStr:     p.PriceString(v.Price),
		Location:     v.Location,
		Images:       v.Images,
		OwnerID:      v.OwnerID,
		ProviderName: v.ProviderName,
		Status:       models.ItemActive,
		Metadata: map[string]any{
			"listing_id":   v.ID,
			"capacity":     v.Capacity,
			"route":        v.Route,
			"manufacturer": v.Manufacturer,
			"model":        v.Model,
		},
	}
}

func (p *Projector) fromGoods(g *models.GoodsListing) *models.MarketplaceItem {
	return &models.MarketplaceItem{
		ExternalID:   models.GoodsExternalID(g.ID),
		Type:         models.ItemGoods,
		Title:        g.Title,
		Description:  g.Description,
		Price:        g.Price,
		PriceStr:     p.PriceString(g.Price),
		Location:     g.Location,
		Images:       g.Images,
		OwnerID:      g.OwnerID,
		ProviderName: g.ProviderName,
		Status:       models.ItemActive,
		Metadata: map[string]any{
			"listing_id": g.ID,
			"category":   g.Category,
			"stock":      g.Stock,
		},
	}
}
