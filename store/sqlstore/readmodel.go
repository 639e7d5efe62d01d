package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Tanmoy095/loadboard/internal/models"
)

// ShipperShipments is the shipper's full list of loads, newest first, each
// with its bidder set.
func (s *Store) ShipperShipments(ctx context.Context, shipperID string) ([]models.Shipment, error) {
	rows, err := s.query(ctx, `
        SELECT `+shipmentColumns+`
        FROM shipments
        WHERE shipper_id = ?
        ORDER BY created_at DESC, id ASC`, shipperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipper shipments: %w", err)
	}
	defer rows.Close()

	shipments := []models.Shipment{}
	index := map[string]int{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		index[sh.ID] = len(shipments)
		shipments = append(shipments, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(shipments) == 0 {
		return shipments, nil
	}

	bidders, err := s.query(ctx, `
        SELECT lb.load_id, lb.driver_id
        FROM load_bidders lb
        JOIN shipments s ON s.id = lb.load_id
        WHERE s.shipper_id = ?`, shipperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipper bidders: %w", err)
	}
	defer bidders.Close()
	for bidders.Next() {
		var loadID, driverID string
		if err := bidders.Scan(&loadID, &driverID); err != nil {
			return nil, err
		}
		if i, ok := index[loadID]; ok {
			shipments[i].BidderIDs.Add(driverID)
		}
	}
	return shipments, bidders.Err()
}

// ShipperBids is every pending bid on the shipper's loads, newest first,
// joined with the load and the bidding driver's rating history.
func (s *Store) ShipperBids(ctx context.Context, shipperID string) ([]models.ShipperBid, error) {
	rows, err := s.query(ctx, `
        SELECT b.id, b.load_id, b.driver_id, b.amount, b.status, b.created_at,
               s.cargo, s.origin, s.destination, s.status,
               r.avg_rating, COALESCE(r.ratings, 0)
        FROM bids b
        JOIN shipments s ON s.id = b.load_id
        LEFT JOIN (
            SELECT assigned_driver_id AS driver_id,
                   AVG(driver_rating) AS avg_rating,
                   COUNT(driver_rating) AS ratings
            FROM shipments
            WHERE driver_rating IS NOT NULL AND assigned_driver_id IS NOT NULL
            GROUP BY assigned_driver_id
        ) r ON r.driver_id = b.driver_id
        WHERE s.shipper_id = ? AND b.status = ?
        ORDER BY b.created_at DESC, b.id ASC`, shipperID, string(models.BidPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list shipper bids: %w", err)
	}
	defer rows.Close()

	out := []models.ShipperBid{}
	for rows.Next() {
		var (
			sb        models.ShipperBid
			bidStatus string
			created   int64
			avg       sql.NullFloat64
		)
		if err := rows.Scan(
			&sb.ID, &sb.LoadID, &sb.DriverID, &sb.Amount, &bidStatus, &created,
			&sb.Cargo, &sb.Origin, &sb.Destination, &sb.LoadStatus,
			&avg, &sb.DriverRatingsCount,
		); err != nil {
			return nil, err
		}
		sb.Status = models.BidStatus(bidStatus)
		sb.CreatedAt = fromMillis(created)
		sb.DriverAvgRating = floatPtr(avg)
		out = append(out, sb)
	}
	return out, rows.Err()
}
