package service

import (
	"context"
	"log/slog"
	"strings"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/kafka"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

// ListingService manages vehicle and goods listings. Each write projects the
// listing into the marketplace in the same transaction.
type ListingService struct {
	tx        store.TransactionManager
	listings  store.ListingStore
	projector *Projector
	refresher *Refresher
	events    events
	logger    *slog.Logger
}

func NewListingService(tx store.TransactionManager, listings store.ListingStore, projector *Projector, refresher *Refresher, publisher kafka.Publisher, logger *slog.Logger) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		tx:        tx,
		listings:  listings,
		projector: projector,
		refresher: refresher,
		events:    events{publisher: publisher, logger: logger},
		logger:    logger,
	}
}

type VehicleInput struct {
	OwnerID      string   `json:"owner_id"`
	ProviderName string   `json:"provider_name"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Capacity     float64  `json:"capacity"`
	Route        string   `json:"route"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Location     string   `json:"location"`
	Price        string   `json:"price"`
	Images       []string `json:"images"`
}

type GoodsInput struct {
	OwnerID      string   `json:"owner_id"`
	ProviderName string   `json:"provider_name"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Stock        int      `json:"stock"`
	Location     string   `json:"location"`
	Price        string   `json:"price"`
	Images       []string `json:"images"`
}

func (in VehicleInput) toListing(id string) (*models.VehicleListing, error) {
	if err := requireOwnerAndTitle(in.OwnerID, in.Title); err != nil {
		return nil, err
	}
	if in.Capacity < 0 {
		return nil, domainErrors.Validation("capacity", "must not be negative")
	}
	price, err := parseOptionalPrice(in.Price)
	if err != nil {
		return nil, err
	}
	return &models.VehicleListing{
		ID:           id,
		OwnerID:      strings.TrimSpace(in.OwnerID),
		ProviderName: in.ProviderName,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Capacity:     in.Capacity,
		Route:        in.Route,
		Manufacturer: in.Manufacturer,
		Model:        in.Model,
		Location:     in.Location,
		Price:        price,
		Images:       in.Images,
	}, nil
}

func (in GoodsInput) toListing(id string) (*models.GoodsListing, error) {
	if err := requireOwnerAndTitle(in.OwnerID, in.Title); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, domainErrors.Validation("stock", "must not be negative")
	}
	price, err := parseOptionalPrice(in.Price)
	if err != nil {
		return nil, err
	}
	return &models.GoodsListing{
		ID:           id,
		OwnerID:      strings.TrimSpace(in.OwnerID),
		ProviderName: in.ProviderName,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		Stock:        in.Stock,
		Location:     in.Location,
		Price:        price,
		Images:       in.Images,
	}, nil
}

func requireOwnerAndTitle(ownerID, title string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domainErrors.Validation("owner_id", "is required")
	}
	if strings.TrimSpace(title) == "" {
		return domainErrors.Validation("title", "is required")
	}
	return nil
}

func (s *ListingService) PostVehicle(ctx context.Context, in VehicleInput) (*models.VehicleListing, error) {
	listing, err := in.toListing("")
	if err != nil {
		return nil, err
	}
	err = runInTx(ctx, s.tx, "postListing", func(ctx context.Context) error {
		if err := s.listings.CreateVehicle(ctx, listing); err != nil {
			return err
		}
		_, err := s.projector.Sync(ctx, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, EventListingPosted, listing.ID, models.ListingVehicle, listing)
	return listing, nil
}

// UpdateVehicle overwrites the owner's listing. A listing that does not
// exist or belongs to someone else is NotFound.
func (s *ListingService) UpdateVehicle(ctx context.Context, id string, in VehicleInput) (*models.VehicleListing, error) {
	listing, err := in.toListing(id)
	if err != nil {
		return nil, err
	}
	err = runInTx(ctx, s.tx, "updateListing", func(ctx context.Context) error {
		if err := s.listings.UpdateVehicle(ctx, listing); err != nil {
			return err
		}
		stored, err := s.listings.GetVehicle(ctx, id)
		if err != nil {
			return err
		}
		listing = stored
		_, err = s.projector.Sync(ctx, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, EventListingUpdated, listing.ID, models.ListingVehicle, listing)
	return listing, nil
}

func (s *ListingService) PostGoods(ctx context.Context, in GoodsInput) (*models.GoodsListing, error) {
	listing, err := in.toListing("")
	if err != nil {
		return nil, err
	}
	err = runInTx(ctx, s.tx, "postListing", func(ctx context.Context) error {
		if err := s.listings.CreateGoods(ctx, listing); err != nil {
			return err
		}
		_, err := s.projector.Sync(ctx, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, EventListingPosted, listing.ID, models.ListingGoods, listing)
	return listing, nil
}

func (s *ListingService) UpdateGoods(ctx context.Context, id string, in GoodsInput) (*models.GoodsListing, error) {
	listing, err := in.toListing(id)
	if err != nil {
		return nil, err
	}
	err = runInTx(ctx, s.tx, "updateListing", func(ctx context.Context) error {
		if err := s.listings.UpdateGoods(ctx, listing); err != nil {
			return err
		}
		stored, err := s.listings.GetGoods(ctx, id)
		if err != nil {
			return err
		}
		listing = stored
		_, err = s.projector.Sync(ctx, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, EventListingUpdated, listing.ID, models.ListingGoods, listing)
	return listing, nil
}

// Withdraw deletes the owner's listing and soft-removes its marketplace item.
func (s *ListingService) Withdraw(ctx context.Context, kind models.ListingKind, id, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domainErrors.Validation("owner_id", "is required")
	}
	var externalID string
	switch kind {
	case models.ListingVehicle:
		externalID = models.VehicleExternalID(id)
	case models.ListingGoods:
		externalID = models.GoodsExternalID(id)
	default:
		return domainErrors.Validation("kind", "must be vehicles or goods")
	}

	err := runInTx(ctx, s.tx, "withdrawListing", func(ctx context.Context) error {
		var err error
		if kind == models.ListingVehicle {
			err = s.listings.DeleteVehicle(ctx, id, ownerID)
		} else {
			err = s.listings.DeleteGoods(ctx, id, ownerID)
		}
		if err != nil {
			return err
		}
		return s.projector.Remove(ctx, externalID)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, EventListingWithdrawn, id, kind, map[string]string{"id": id, "owner_id": ownerID, "external_id": externalID})
	return nil
}

func (s *ListingService) afterWrite(ctx context.Context, event, id string, kind models.ListingKind, payload any) {
	s.logger.Info("listing changed", "event", event, "kind", kind, "listing_id", id)
	s.events.publish(id, event, map[string]any{"kind": kind, "listing": payload})
	s.refresher.PushMarket(ctx)
}
