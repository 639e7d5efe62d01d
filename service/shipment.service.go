package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Tanmoy095/loadboard/internal/currency"
	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/kafka"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

// DepositReminders schedules the reminder sent to a shipper while a
// committed load waits for its deposit.
type DepositReminders interface {
	ScheduleDepositReminder(ctx context.Context, loadID, shipperID string) error
}

type noReminders struct{}

func (noReminders) ScheduleDepositReminder(context.Context, string, string) error { return nil }

// ShipmentDeps wires the shipment state machine.
type ShipmentDeps struct {
	Tx        store.TransactionManager
	Shipments store.ShipmentStore
	Bids      store.BidStore
	ReadModel store.ReadModel
	Projector *Projector
	Refresher *Refresher
	Publisher kafka.Publisher  // optional
	Reminders DepositReminders // optional
	Logger    *slog.Logger
}

// ShipmentService runs the load and bid lifecycle. Every mutation and its
// marketplace projection commit in one transaction; pushes and domain events
// follow the commit and never affect the result.
type ShipmentService struct {
	tx        store.TransactionManager
	shipments store.ShipmentStore
	bids      store.BidStore
	readModel store.ReadModel
	projector *Projector
	refresher *Refresher
	events    events
	reminders DepositReminders
	logger    *slog.Logger
}

func NewShipmentService(d ShipmentDeps) *ShipmentService {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reminders := d.Reminders
	if reminders == nil {
		reminders = noReminders{}
	}
	return &ShipmentService{
		tx:        d.Tx,
		shipments: d.Shipments,
		bids:      d.Bids,
		readModel: d.ReadModel,
		projector: d.Projector,
		refresher: d.Refresher,
		events:    events{publisher: d.Publisher, logger: logger},
		reminders: reminders,
		logger:    logger,
	}
}

// PostLoadInput is a shipper's new load. Price is the raw, possibly
// formatted amount; empty means open to bids.
type PostLoadInput struct {
	ShipperID   string   `json:"shipper_id"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Cargo       string   `json:"cargo"`
	Weight      float64  `json:"weight"`
	Quantity    int      `json:"quantity"`
	Price       string   `json:"price"`
	PickupDate  string   `json:"pickup_date"`
	Images      []string `json:"images"`
}

func (in PostLoadInput) validate() error {
	required := []struct{ field, value string }{
		{"shipper_id", in.ShipperID},
		{"origin", in.Origin},
		{"destination", in.Destination},
		{"cargo", in.Cargo},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domainErrors.Validation(r.field, "is required")
		}
	}
	if in.Weight < 0 {
		return domainErrors.Validation("weight", "must not be negative")
	}
	if in.Quantity < 0 {
		return domainErrors.Validation("quantity", "must not be negative")
	}
	return nil
}

// PostLoad stores a new load in Bidding Open and projects it.
func (s *ShipmentService) PostLoad(ctx context.Context, in PostLoadInput) (*models.Shipment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	price, err := parseOptionalPrice(in.Price)
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ShipperID:     strings.TrimSpace(in.ShipperID),
		Origin:        strings.TrimSpace(in.Origin),
		Destination:   strings.TrimSpace(in.Destination),
		Cargo:         strings.TrimSpace(in.Cargo),
		Weight:        in.Weight,
		Quantity:      in.Quantity,
		Price:         price,
		Status:        models.StatusBiddingOpen,
		DepositStatus: models.DepositUnpaid,
		PickupDate:    in.PickupDate,
		Images:        in.Images,
		BidderIDs:     models.NewBidderSet(),
	}
	err = s.inTx(ctx, "postLoad", func(ctx context.Context) error {
		if err := s.shipments.CreateShipment(ctx, shipment); err != nil {
			return err
		}
		_, err := s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("load posted", "load_id", shipment.ID, "shipper_id", shipment.ShipperID)
	s.events.publish(shipment.ID, EventLoadPosted, shipment)
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	s.refresher.PushMarket(ctx)
	return shipment, nil
}

func (s *ShipmentService) GetLoad(ctx context.Context, loadID string) (*models.Shipment, error) {
	if strings.TrimSpace(loadID) == "" {
		return nil, domainErrors.Validation("load_id", "is required")
	}
	return s.shipments.GetShipment(ctx, loadID)
}

// CommitToJob records the assigned driver's decision. COMMIT moves the load
// to Pending Deposit; DECLINE reopens it to bidders and rejects the accepted
// bid. The agreed price stays on the load.
func (s *ShipmentService) CommitToJob(ctx context.Context, loadID, decision string) (*models.Shipment, error) {
	d := models.CommitDecision(strings.ToUpper(strings.TrimSpace(decision)))
	if d != models.DecisionCommit && d != models.DecisionDecline {
		return nil, domainErrors.Validation("decision", "must be COMMIT or DECLINE")
	}

	var shipment *models.Shipment
	err := s.inTx(ctx, "commitToJob", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		if shipment.Status != models.StatusWaitingCommitment {
			return domainErrors.Conflict("load %s is %s, not waiting for driver commitment", loadID, shipment.Status)
		}

		if d == models.DecisionCommit {
			shipment.Status = models.StatusPendingDeposit
		} else {
			shipment.Status = models.StatusFindingDriver
			shipment.AssignedDriverID = nil
		}
		if err := s.shipments.UpdateShipment(ctx, shipment, models.StatusWaitingCommitment); err != nil {
			return err
		}
		if d == models.DecisionDecline {
			if _, err := s.bids.RejectAcceptedBid(ctx, loadID); err != nil {
				return err
			}
		}
		_, err = s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	if d == models.DecisionCommit {
		s.logger.Info("driver committed", "load_id", loadID)
		s.events.publish(loadID, EventLoadCommitted, shipment)
		if err := s.reminders.ScheduleDepositReminder(ctx, loadID, shipment.ShipperID); err != nil {
			s.logger.Warn("deposit reminder not scheduled", "load_id", loadID, "error", err)
		}
	} else {
		s.logger.Info("driver declined", "load_id", loadID)
		s.events.publish(loadID, EventLoadDeclined, shipment)
		s.refresher.PushShipperBids(ctx, shipment.ShipperID)
	}
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	s.refresher.PushMarket(ctx)
	return shipment, nil
}

// PayDeposit secures the deposit of a committed load.
func (s *ShipmentService) PayDeposit(ctx context.Context, loadID string) (*models.Shipment, error) {
	var shipment *models.Shipment
	err := s.inTx(ctx, "payDeposit", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		if shipment.Status != models.StatusPendingDeposit {
			return domainErrors.Conflict("load %s is %s, not pending deposit", loadID, shipment.Status)
		}
		shipment.Status = models.StatusReadyForPickup
		shipment.DepositStatus = models.DepositSecured
		if err := s.shipments.UpdateShipment(ctx, shipment, models.StatusPendingDeposit); err != nil {
			return err
		}
		_, err = s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit secured", "load_id", loadID)
	s.events.publish(loadID, EventDepositPaid, shipment)
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	return shipment, nil
}

// UpdateStatus moves the load to one of the tracking states. Both the status
// label and its tag are accepted.
func (s *ShipmentService) UpdateStatus(ctx context.Context, loadID, newStatus string) (*models.Shipment, error) {
	target, ok := models.ParseTrackingStatus(strings.TrimSpace(newStatus))
	if !ok {
		return nil, domainErrors.Validation("status", "must be one of in_transit, delivered, waiting_delivery")
	}

	var shipment *models.Shipment
	err := s.inTx(ctx, "updateStatus", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		current := shipment.Status
		shipment.Status = target
		// Guarded on the status just read so a concurrent change is not lost.
		if err := s.shipments.UpdateShipment(ctx, shipment, current); err != nil {
			return err
		}
		_, err = s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("load status updated", "load_id", loadID, "status", target)
	s.events.publish(loadID, EventLoadStatusUpdated, shipment)
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	s.refresher.PushMarket(ctx)
	return shipment, nil
}

// SubmitRating rates the assigned driver of a delivered load.
func (s *ShipmentService) SubmitRating(ctx context.Context, loadID string, rating int, comment string) (*models.Shipment, error) {
	if rating < 1 || rating > 5 {
		return nil, domainErrors.Validation("rating", "must be between 1 and 5")
	}

	var shipment *models.Shipment
	err := s.inTx(ctx, "submitRating", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		if shipment.Status != models.StatusDelivered && shipment.Status != models.StatusCompleted {
			return domainErrors.Conflict("load %s is %s and cannot be rated yet", loadID, shipment.Status)
		}
		if shipment.AssignedDriverID == nil {
			return domainErrors.Conflict("load %s has no assigned driver", loadID)
		}
		shipment.DriverRating = &rating
		shipment.RatingComment = strings.TrimSpace(comment)
		return s.shipments.UpdateShipment(ctx, shipment, shipment.Status)
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(loadID, EventLoadRated, shipment)
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	return shipment, nil
}

func (s *ShipmentService) ShipperShipments(ctx context.Context, shipperID string) ([]models.Shipment, error) {
	if strings.TrimSpace(shipperID) == "" {
		return nil, domainErrors.Validation("shipper_id", "is required")
	}
	return s.readModel.ShipperShipments(ctx, shipperID)
}

// inTx runs fn in a transaction. Domain errors pass through unchanged; any
// other failure rolled the transaction back and is reported as retryable.
func (s *ShipmentService) inTx(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return runInTx(ctx, s.tx, op, fn)
}

func runInTx(ctx context.Context, tx store.TransactionManager, op string, fn func(ctx context.Context) error) error {
	err := tx.RunInTx(ctx, fn)
	if err == nil || domainErrors.IsDomain(err) {
		return err
	}
	return &domainErrors.TransactionError{Op: op, Err: err}
}

func parseOptionalPrice(raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := currency.ParseAmount(raw)
	if err != nil {
		return nil, domainErrors.Validation("price", err.Error())
	}
	return &v, nil
}
