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

const vehicleColumns = `id, owner_id, provider_name, title, description, capacity, route,
       manufacturer, model, location, price, images, created_at, updated_at`

const goodsColumns = `id, owner_id, provider_name, title, description, category, stock,
       location, price, images, created_at, updated_at`

func (s *Store) CreateVehicle(ctx context.Context, l *models.VehicleListing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
        INSERT INTO vehicle_listings (`+vehicleColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.ProviderName, l.Title, l.Description, l.Capacity, l.Route,
		l.Manufacturer, l.Model, l.Location, nullFloat(l.Price), images, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("failed to insert vehicle listing: %w", err)
	}
	return nil
}

// UpdateVehicle overwrites the listing's display fields. The row must belong
// to l.OwnerID.
func (s *Store) UpdateVehicle(ctx context.Context, l *models.VehicleListing) error {
	now := s.now()
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
        UPDATE vehicle_listings
        SET provider_name = ?, title = ?, description = ?, capacity = ?, route = ?,
            manufacturer = ?, model = ?, location = ?, price = ?, images = ?, updated_at = ?
        WHERE id = ? AND owner_id = ?`,
		l.ProviderName, l.Title, l.Description, l.Capacity, l.Route,
		l.Manufacturer, l.Model, l.Location, nullFloat(l.Price), images, toMillis(now),
		l.ID, l.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update vehicle listing: %w", err)
	}
	if err := expectOne(res, "vehicle listing", l.ID); err != nil {
		return err
	}
	l.UpdatedAt = now
	return nil
}

func (s *Store) GetVehicle(ctx context.Context, id string) (*models.VehicleListing, error) {
	var (
		l       models.VehicleListing
		price   sql.NullFloat64
		images  string
		created int64
		updated int64
	)
	err := s.queryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicle_listings WHERE id = ?`, id).Scan(
		&l.ID, &l.OwnerID, &l.ProviderName, &l.Title, &l.Description, &l.Capacity, &l.Route,
		&l.Manufacturer, &l.Model, &l.Location, &price, &images, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.NotFound("vehicle listing", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle listing: %w", err)
	}
	l.Price = floatPtr(price)
	l.CreatedAt, l.UpdatedAt = fromMillis(created), fromMillis(updated)
	if l.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) DeleteVehicle(ctx context.Context, id, ownerID string) error {
	res, err := s.exec(ctx, `DELETE FROM vehicle_listings WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle listing: %w", err)
	}
	return expectOne(res, "vehicle listing", id)
}

func (s *Store) CreateGoods(ctx context.Context, l *models.GoodsListing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
        INSERT INTO goods_listings (`+goodsColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.ProviderName, l.Title, l.Description, l.Category, l.Stock,
		l.Location, nullFloat(l.Price), images, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("failed to insert goods listing: %w", err)
	}
	return nil
}

func (s *Store) UpdateGoods(ctx context.Context, l *models.GoodsListing) error {
	now := s.now()
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
        UPDATE goods_listings
        SET provider_name = ?, title = ?, description = ?, category = ?, stock = ?,
            location = ?, price = ?, images = ?, updated_at = ?
        WHERE id = ? AND owner_id = ?`,
		l.ProviderName, l.Title, l.Description, l.Category, l.Stock,
		l.Location, nullFloat(l.Price), images, toMillis(now),
		l.ID, l.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update goods listing: %w", err)
	}
	if err := expectOne(res, "goods listing", l.ID); err != nil {
		return err
	}
	l.UpdatedAt = now
	return nil
}

func (s *Store) GetGoods(ctx context.Context, id string) (*models.GoodsListing, error) {
	var (
		l       models.GoodsListing
		price   sql.NullFloat64
		images  string
		created int64
		updated int64
	)
	err := s.queryRow(ctx, `SELECT `+goodsColumns+` FROM goods_listings WHERE id = ?`, id).Scan(
		&l.ID, &l.OwnerID, &l.ProviderName, &l.Title, &l.Description, &l.Category, &l.Stock,
		&l.Location, &price, &images, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.NotFound("goods listing", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goods listing: %w", err)
	}
	l.Price = floatPtr(price)
	l.CreatedAt, l.UpdatedAt = fromMillis(created), fromMillis(updated)
	if l.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) DeleteGoods(ctx context.Context, id, ownerID string) error {
	res, err := s.exec(ctx, `DELETE FROM goods_listings WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete goods listing: %w", err)
	}
	return expectOne(res, "goods listing", id)
}

// expectOne turns a zero-row scoped write into NotFound; an ownership
// mismatch is indistinguishable from a missing row.
func expectOne(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErrors.NotFound(resource, id)
	}
	return nil
}
