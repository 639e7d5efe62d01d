package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
)

func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	if bid.Status == "" {
		bid.Status = models.BidPending
	}
	bid.CreatedAt = s.now()
	_, err := s.exec(ctx, `
        INSERT INTO bids (id, load_id, driver_id, amount, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		bid.ID, bid.LoadID, bid.DriverID, bid.Amount, string(bid.Status), toMillis(bid.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

func (s *Store) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	row := s.queryRow(ctx, `
        SELECT id, load_id, driver_id, amount, status, created_at
        FROM bids WHERE id = ?`, id)
	bid, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.NotFound("bid", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

func (s *Store) SetBidStatus(ctx context.Context, id string, from, to models.BidStatus) error {
	res, err := s.exec(ctx, `UPDATE bids SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var current string
	err = s.queryRow(ctx, `SELECT status FROM bids WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domainErrors.NotFound("bid", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read bid status: %w", err)
	}
	return domainErrors.Conflict("bid %s is %s", id, current)
}

func (s *Store) RejectPendingBids(ctx context.Context, loadID, keepID string) (int64, error) {
	res, err := s.exec(ctx, `
        UPDATE bids SET status = ?
        WHERE load_id = ? AND id <> ? AND status = ?`,
		string(models.BidRejected), loadID, keepID, string(models.BidPending))
	if err != nil {
		return 0, fmt.Errorf("failed to reject pending bids: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) RejectAcceptedBid(ctx context.Context, loadID string) (int64, error) {
	res, err := s.exec(ctx, `UPDATE bids SET status = ? WHERE load_id = ? AND status = ?`,
		string(models.BidRejected), loadID, string(models.BidAccepted))
	if err != nil {
		return 0, fmt.Errorf("failed to reject accepted bid: %w", err)
	}
	return res.RowsAffected()
}

// ListBidsForLoad returns every bid on the load, oldest first.
func (s *Store) ListBidsForLoad(ctx context.Context, loadID string) ([]models.Bid, error) {
	rows, err := s.query(ctx, `
        SELECT id, load_id, driver_id, amount, status, created_at
        FROM bids WHERE load_id = ?
        ORDER BY created_at ASC, id ASC`, loadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var (
		bid     models.Bid
		status  string
		created int64
	)
	if err := row.Scan(&bid.ID, &bid.LoadID, &bid.DriverID, &bid.Amount, &status, &created); err != nil {
		return nil, err
	}
	bid.Status = models.BidStatus(status)
	bid.CreatedAt = fromMillis(created)
	return &bid, nil
}
