package service

import (
	"context"
	"strings"

	"github.com/Tanmoy095/loadboard/internal/currency"
	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
)

// PlaceBid records a driver's bid on an open load. rawAmount may carry a
// currency code and grouping ("MWK 100,000"). A driver who bids again keeps a
// single entry in the bidder set.
func (s *ShipmentService) PlaceBid(ctx context.Context, driverID, loadID, rawAmount string) (*models.Bid, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domainErrors.Validation("driver_id", "is required")
	}
	amount, err := currency.ParseAmount(rawAmount)
	if err != nil {
		return nil, domainErrors.Validation("amount", err.Error())
	}

	var (
		shipment *models.Shipment
		bid      *models.Bid
	)
	err = s.inTx(ctx, "placeBid", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		if !shipment.Status.OpenForBids() {
			return domainErrors.Conflict("load %s is %s and no longer takes bids", loadID, shipment.Status)
		}
		// Touching the row under the open-status guard serializes this bid
		// with a concurrent accept on the same load.
		if err := s.shipments.UpdateShipment(ctx, shipment, models.OpenStatuses...); err != nil {
			return err
		}
		if _, err := s.shipments.AddBidder(ctx, loadID, driverID); err != nil {
			return err
		}
		shipment.BidderIDs.Add(driverID)

		bid = &models.Bid{LoadID: loadID, DriverID: driverID, Amount: amount, Status: models.BidPending}
		if err := s.bids.CreateBid(ctx, bid); err != nil {
			return err
		}
		_, err = s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bid placed", "load_id", loadID, "bid_id", bid.ID, "driver_id", driverID)
	s.events.publish(loadID, EventBidPlaced, map[string]any{"bid": bid, "shipper_id": shipment.ShipperID})
	s.refresher.PushShipperBids(ctx, shipment.ShipperID)
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	return bid, nil
}

// AcceptBid awards the load to one bid. In a single transaction the load
// moves to Waiting for Driver Commitment with the bid's amount and driver,
// the bid becomes Accepted and every other pending bid on the load is
// Rejected. The first statement is a guarded update of the load row, so of
// two concurrent accepts only one can find the load still open.
func (s *ShipmentService) AcceptBid(ctx context.Context, loadID, bidID string) (*models.Shipment, error) {
	var (
		shipment *models.Shipment
		bid      *models.Bid
	)
	err := s.inTx(ctx, "acceptBid", func(ctx context.Context) error {
		var err error
		shipment, err = s.shipments.GetShipment(ctx, loadID)
		if err != nil {
			return err
		}
		bid, err = s.bids.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.LoadID != loadID {
			return domainErrors.NotFound("bid", bidID)
		}
		if !shipment.Status.OpenForBids() {
			return domainErrors.Conflict("load %s is %s and cannot accept bids", loadID, shipment.Status)
		}
		if bid.Status != models.BidPending {
			return domainErrors.Conflict("bid %s is %s", bidID, bid.Status)
		}

		amount, driverID := bid.Amount, bid.DriverID
		shipment.Price = &amount
		shipment.AssignedDriverID = &driverID
		shipment.Status = models.StatusWaitingCommitment
		if err := s.shipments.UpdateShipment(ctx, shipment, models.OpenStatuses...); err != nil {
			return err
		}
		if err := s.bids.SetBidStatus(ctx, bidID, models.BidPending, models.BidAccepted); err != nil {
			return err
		}
		bid.Status = models.BidAccepted
		if _, err := s.bids.RejectPendingBids(ctx, loadID, bidID); err != nil {
			return err
		}
		_, err = s.projector.Sync(ctx, shipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bid accepted", "load_id", loadID, "bid_id", bidID, "driver_id", bid.DriverID)
	s.events.publish(loadID, EventBidAccepted, map[string]any{"load": shipment, "bid": bid})
	s.refresher.PushShipperShipments(ctx, shipment.ShipperID)
	s.refresher.PushShipperBids(ctx, shipment.ShipperID)
	s.refresher.PushMarket(ctx)
	return shipment, nil
}

// BidsForLoad lists every bid on the load, oldest first.
func (s *ShipmentService) BidsForLoad(ctx context.Context, loadID string) ([]models.Bid, error) {
	if _, err := s.shipments.GetShipment(ctx, loadID); err != nil {
		return nil, err
	}
	return s.bids.ListBidsForLoad(ctx, loadID)
}

func (s *ShipmentService) ShipperBids(ctx context.Context, shipperID string) ([]models.ShipperBid, error) {
	if strings.TrimSpace(shipperID) == "" {
		return nil, domainErrors.Validation("shipper_id", "is required")
	}
	return s.readModel.ShipperBids(ctx, shipperID)
}
