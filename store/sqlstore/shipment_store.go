package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
)

const shipmentColumns = `id, shipper_id, origin, destination, cargo, weight, quantity, price, status,
       assigned_driver_id, pickup_date, deposit_status, driver_rating, rating_comment, images,
       created_at, updated_at, delivered_at`

// CreateShipment inserts a new load. ID and timestamps are assigned here when
// empty.
func (s *Store) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	if !shipment.Status.Valid() {
		return domainErrors.Validation("status", fmt.Sprintf("unknown shipment status %q", shipment.Status))
	}
	if shipment.ID == "" {
		shipment.ID = uuid.NewString()
	}
	now := s.now()
	shipment.CreatedAt, shipment.UpdatedAt = now, now
	shipment.DeliveredAt = nil
	if shipment.Status.Earning() {
		shipment.DeliveredAt = &now
	}
	if shipment.DepositStatus == "" {
		shipment.DepositStatus = models.DepositUnpaid
	}
	images, err := encodeImages(shipment.Images)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, `
        INSERT INTO shipments (`+shipmentColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shipment.ID,
		shipment.ShipperID,
		shipment.Origin,
		shipment.Destination,
		shipment.Cargo,
		shipment.Weight,
		shipment.Quantity,
		nullFloat(shipment.Price),
		string(shipment.Status),
		nullString(shipment.AssignedDriverID),
		shipment.PickupDate,
		string(shipment.DepositStatus),
		nullInt(shipment.DriverRating),
		shipment.RatingComment,
		images,
		toMillis(now),
		toMillis(now),
		deliveredAt(shipment.Status, now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	if shipment.BidderIDs == nil {
		shipment.BidderIDs = models.NewBidderSet()
	}
	return nil
}

// GetShipment returns the load together with its bidder set.
func (s *Store) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	row := s.queryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id)
	shipment, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.NotFound("load", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	rows, err := s.query(ctx, `SELECT driver_id FROM load_bidders WHERE load_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bidders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var driverID string
		if err := rows.Scan(&driverID); err != nil {
			return nil, err
		}
		shipment.BidderIDs.Add(driverID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shipment, nil
}

// UpdateShipment writes the lifecycle fields guarded by the expected current
// status. Two writers racing from the same status cannot both succeed: the
// second re-evaluates the WHERE clause after the first commits and matches
// no row. delivered_at keeps the first time the load reached an earning
// status and is cleared when it leaves one.
func (s *Store) UpdateShipment(ctx context.Context, shipment *models.Shipment, expected ...models.ShipmentStatus) error {
	if !shipment.Status.Valid() {
		return domainErrors.Validation("status", fmt.Sprintf("unknown shipment status %q", shipment.Status))
	}
	now := s.now()
	earning := 0
	if shipment.Status.Earning() {
		earning = 1
	}
	query := `
        UPDATE shipments
        SET price = ?, status = ?, assigned_driver_id = ?, deposit_status = ?,
            driver_rating = ?, rating_comment = ?, updated_at = ?,
            delivered_at = CASE WHEN ? = 1 THEN COALESCE(delivered_at, ?) ELSE NULL END
        WHERE id = ?`
	args := []any{
		nullFloat(shipment.Price),
		string(shipment.Status),
		nullString(shipment.AssignedDriverID),
		string(shipment.DepositStatus),
		nullInt(shipment.DriverRating),
		shipment.RatingComment,
		toMillis(now),
		earning,
		toMillis(now),
		shipment.ID,
	}
	if len(expected) > 0 {
		marks, statusArgs := inClause(expected)
		query += ` AND status IN (` + marks + `)`
		args = append(args, statusArgs...)
	}

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := s.queryRow(ctx, `SELECT status FROM shipments WHERE id = ?`, shipment.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domainErrors.NotFound("load", shipment.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to read shipment status: %w", err)
		}
		return domainErrors.Conflict("load %s is %s", shipment.ID, current)
	}
	shipment.UpdatedAt = now
	switch {
	case !shipment.Status.Earning():
		shipment.DeliveredAt = nil
	case shipment.DeliveredAt == nil:
		shipment.DeliveredAt = &now
	}
	return nil
}

func deliveredAt(status models.ShipmentStatus, now time.Time) sql.NullInt64 {
	if !status.Earning() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(now), Valid: true}
}

func (s *Store) AddBidder(ctx context.Context, loadID, driverID string) (bool, error) {
	res, err := s.exec(ctx, `
        INSERT INTO load_bidders (load_id, driver_id, created_at)
        VALUES (?, ?, ?)
        ON CONFLICT (load_id, driver_id) DO NOTHING`,
		loadID, driverID, toMillis(s.now()))
	if err != nil {
		return false, fmt.Errorf("failed to add bidder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*models.Shipment, error) {
	var (
		sh       models.Shipment
		status   string
		deposit  string
		price    sql.NullFloat64
		assigned sql.NullString
		rating   sql.NullInt64
		images   string
		created  int64
		updated  int64
		delivery sql.NullInt64
	)
	if err := row.Scan(
		&sh.ID,
		&sh.ShipperID,
		&sh.Origin,
		&sh.Destination,
		&sh.Cargo,
		&sh.Weight,
		&sh.Quantity,
		&price,
		&status,
		&assigned,
		&sh.PickupDate,
		&deposit,
		&rating,
		&sh.RatingComment,
		&images,
		&created,
		&updated,
		&delivery,
	); err != nil {
		return nil, err
	}
	sh.Status = models.ShipmentStatus(status)
	sh.DepositStatus = models.DepositStatus(deposit)
	sh.Price = floatPtr(price)
	sh.AssignedDriverID = stringPtr(assigned)
	sh.DriverRating = intPtr(rating)
	sh.CreatedAt = fromMillis(created)
	sh.UpdatedAt = fromMillis(updated)
	if delivery.Valid {
		t := fromMillis(delivery.Int64)
		sh.DeliveredAt = &t
	}
	sh.BidderIDs = models.NewBidderSet()
	var err error
	if sh.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	return &sh, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(b), nil
}

func decodeImages(raw string) ([]string, error) {
	images := []string{}
	if strings.TrimSpace(raw) == "" {
		return images, nil
	}
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return images, nil
}
