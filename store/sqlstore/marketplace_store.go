package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
)

const itemColumns = `id, external_id, type, title, description, price, price_str, location, images,
       owner_id, provider_name, status, metadata, created_at, updated_at`

// UpsertItem writes the projection row keyed by external_id. The first write
// fixes id and created_at; later writes only refresh the display fields.
func (s *Store) UpsertItem(ctx context.Context, item *models.MarketplaceItem) error {
	images, err := encodeImages(item.Images)
	if err != nil {
		return err
	}
	meta := item.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	now := toMillis(s.now())

	var (
		id      string
		created int64
	)
	err = s.queryRow(ctx, `
        INSERT INTO marketplace_items (`+itemColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (external_id) DO UPDATE SET
            type = excluded.type,
            title = excluded.title,
            description = excluded.description,
            price = excluded.price,
            price_str = excluded.price_str,
            location = excluded.location,
            images = excluded.images,
            owner_id = excluded.owner_id,
            provider_name = excluded.provider_name,
            status = excluded.status,
            metadata = excluded.metadata,
            updated_at = excluded.updated_at
        RETURNING id, created_at`,
		uuid.NewString(),
		item.ExternalID,
		string(item.Type),
		item.Title,
		item.Description,
		nullFloat(item.Price),
		item.PriceStr,
		item.Location,
		images,
		item.OwnerID,
		item.ProviderName,
		string(item.Status),
		string(metadata),
		now,
		now,
	).Scan(&id, &created)
	if err != nil {
		return fmt.Errorf("failed to upsert marketplace item: %w", err)
	}
	item.ID = id
	item.CreatedAt = fromMillis(created)
	item.UpdatedAt = fromMillis(now)
	return nil
}

// SetItemStatus changes only the status of an existing row.
func (s *Store) SetItemStatus(ctx context.Context, externalID string, status models.ItemStatus) error {
	res, err := s.exec(ctx, `UPDATE marketplace_items SET status = ?, updated_at = ? WHERE external_id = ?`,
		string(status), toMillis(s.now()), externalID)
	if err != nil {
		return fmt.Errorf("failed to update marketplace item: %w", err)
	}
	return expectOne(res, "marketplace item", externalID)
}

func (s *Store) GetItemByExternalID(ctx context.Context, externalID string) (*models.MarketplaceItem, error) {
	row := s.queryRow(ctx, `SELECT `+itemColumns+` FROM marketplace_items WHERE external_id = ?`, externalID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.NotFound("marketplace item", externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace item: %w", err)
	}
	return item, nil
}

func (s *Store) ListItemsByStatus(ctx context.Context, status models.ItemStatus, limit int) ([]models.MarketplaceItem, error) {
	rows, err := s.query(ctx, `
        SELECT `+itemColumns+`
        FROM marketplace_items
        WHERE status = ?
        ORDER BY created_at DESC, id ASC
        LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace items: %w", err)
	}
	defer rows.Close()

	items := []models.MarketplaceItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(row rowScanner) (*models.MarketplaceItem, error) {
	var (
		item     models.MarketplaceItem
		typ      string
		status   string
		price    sql.NullFloat64
		images   string
		metadata string
		created  int64
		updated  int64
	)
	if err := row.Scan(
		&item.ID, &item.ExternalID, &typ, &item.Title, &item.Description, &price, &item.PriceStr,
		&item.Location, &images, &item.OwnerID, &item.ProviderName, &status, &metadata,
		&created, &updated,
	); err != nil {
		return nil, err
	}
	item.Type = models.ItemType(typ)
	item.Status = models.ItemStatus(status)
	item.Price = floatPtr(price)
	item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
	var err error
	if item.Images, err = decodeImages(images); err != nil {
		return nil, err
	}
	item.Metadata = map[string]any{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &item, nil
}
