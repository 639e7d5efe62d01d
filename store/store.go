package store

import (
	"context"
	"time"

	"github.com/Tanmoy095/loadboard/internal/models"
)

// TransactionManager runs fn inside one database transaction. Stores called
// with the ctx passed to fn take part in that transaction. A nested call joins
// the outer transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShipmentStore is the shipment ledger: loads, their lifecycle status and
// their bidder sets.
type ShipmentStore interface {
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	// GetShipment returns a NotFoundError when the load does not exist.
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	// UpdateShipment persists the lifecycle fields (price, status, assigned
	// driver, deposit, rating) only if the stored status is one of expected.
	// Zero rows updated yields a NotFoundError or a ConflictError.
	UpdateShipment(ctx context.Context, shipment *models.Shipment, expected ...models.ShipmentStatus) error
	// AddBidder inserts driverID into the load's bidder set and reports
	// whether it was new. Re-adding a member is not an error.
	AddBidder(ctx context.Context, loadID, driverID string) (bool, error)
}

// BidStore is the bid registry.
type BidStore interface {
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	// SetBidStatus moves a bid from one status to another, failing with a
	// ConflictError if the bid is not currently in from.
	SetBidStatus(ctx context.Context, id string, from, to models.BidStatus) error
	// RejectPendingBids rejects every pending bid on the load except keepID.
	RejectPendingBids(ctx context.Context, loadID, keepID string) (int64, error)
	// RejectAcceptedBid rejects the load's accepted bid, if any.
	RejectAcceptedBid(ctx context.Context, loadID string) (int64, error)
	ListBidsForLoad(ctx context.Context, loadID string) ([]models.Bid, error)
}

// ListingStore holds vehicle and goods listings. Updates and deletes are
// scoped to the owner; a mismatch is reported as NotFoundError.
type ListingStore interface {
	CreateVehicle(ctx context.Context, listing *models.VehicleListing) error
	UpdateVehicle(ctx context.Context, listing *models.VehicleListing) error
	GetVehicle(ctx context.Context, id string) (*models.VehicleListing, error)
	DeleteVehicle(ctx context.Context, id, ownerID string) error

	CreateGoods(ctx context.Context, listing *models.GoodsListing) error
	UpdateGoods(ctx context.Context, listing *models.GoodsListing) error
	GetGoods(ctx context.Context, id string) (*models.GoodsListing, error)
	DeleteGoods(ctx context.Context, id, ownerID string) error
}

// MarketplaceStore holds the denormalized marketplace projection.
type MarketplaceStore interface {
	// UpsertItem inserts or updates the row keyed by item.ExternalID and fills
	// item.ID and item.CreatedAt from the stored row.
	UpsertItem(ctx context.Context, item *models.MarketplaceItem) error
	SetItemStatus(ctx context.Context, externalID string, status models.ItemStatus) error
	GetItemByExternalID(ctx context.Context, externalID string) (*models.MarketplaceItem, error)
	// ListItemsByStatus returns the newest rows first.
	ListItemsByStatus(ctx context.Context, status models.ItemStatus, limit int) ([]models.MarketplaceItem, error)
}

// ReadModel holds the named views pushed to clients. Every caller that needs
// one of these views goes through the same query.
type ReadModel interface {
	ShipperShipments(ctx context.Context, shipperID string) ([]models.Shipment, error)
	ShipperBids(ctx context.Context, shipperID string) ([]models.ShipperBid, error)
}

// MetricsStore answers the read-only dashboard aggregations.
type MetricsStore interface {
	FleetCapacity(ctx context.Context, ownerID string) (float64, error)
	RevenueBetween(ctx context.Context, driverID string, from, to time.Time) (float64, error)
	CountActiveJobs(ctx context.Context, driverID string) (int, error)
	CountOpenLoads(ctx context.Context, shipperID string) (int, error)
	CountPendingBids(ctx context.Context, shipperID string) (int, error)
}
