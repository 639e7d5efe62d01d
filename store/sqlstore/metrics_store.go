package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanmoy095/loadboard/internal/models"
)

// FleetCapacity is the summed capacity (tons) of the owner's vehicle listings.
func (s *Store) FleetCapacity(ctx context.Context, ownerID string) (float64, error) {
	var total float64
	err := s.queryRow(ctx, `SELECT COALESCE(SUM(capacity), 0.0) FROM vehicle_listings WHERE owner_id = ?`, ownerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fleet capacity: %w", err)
	}
	return total, nil
}

// RevenueBetween sums the agreed price of the driver's delivered loads whose
// delivery falls in [from, to). Later writes such as a rating do not move it.
func (s *Store) RevenueBetween(ctx context.Context, driverID string, from, to time.Time) (float64, error) {
	marks, args := inClause(models.EarningStatuses)
	query := `
        SELECT COALESCE(SUM(price), 0.0)
        FROM shipments
        WHERE assigned_driver_id = ? AND status IN (` + marks + `)
          AND delivered_at >= ? AND delivered_at < ?`
	all := append([]any{driverID}, args...)
	all = append(all, toMillis(from), toMillis(to))

	var total float64
	if err := s.queryRow(ctx, query, all...).Scan(&total); err != nil {
		return 0, fmt.Errorf("revenue: %w", err)
	}
	return total, nil
}

func (s *Store) CountActiveJobs(ctx context.Context, driverID string) (int, error) {
	marks, args := inClause(models.ActiveJobStatuses)
	return s.count(ctx, "active jobs",
		`SELECT COUNT(*) FROM shipments WHERE assigned_driver_id = ? AND status IN (`+marks+`)`,
		append([]any{driverID}, args...)...)
}

func (s *Store) CountOpenLoads(ctx context.Context, shipperID string) (int, error) {
	marks, args := inClause(models.OpenStatuses)
	return s.count(ctx, "open loads",
		`SELECT COUNT(*) FROM shipments WHERE shipper_id = ? AND status IN (`+marks+`)`,
		append([]any{shipperID}, args...)...)
}

func (s *Store) CountPendingBids(ctx context.Context, shipperID string) (int, error) {
	return s.count(ctx, "pending bids", `
        SELECT COUNT(*)
        FROM bids b
        JOIN shipments s ON s.id = b.load_id
        WHERE s.shipper_id = ? AND b.status = ?`,
		shipperID, string(models.BidPending))
}

func (s *Store) count(ctx context.Context, what, query string, args ...any) (int, error) {
	var n int
	if err := s.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}
