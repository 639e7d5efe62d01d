package models

import "time"

type ItemType string

const (
	ItemCargo     ItemType = "Cargo"
	ItemTransport ItemType = "Transport/Logistics"
	ItemGoods     ItemType = "Hardware/Goods"
)

type ItemStatus string

const (
	ItemActive    ItemStatus = "Active"
	ItemHandshake ItemStatus = "Handshake"
	ItemRemoved   ItemStatus = "Removed"
)

// OpenToBids is the price_str of items without a fixed price.
const OpenToBids = "Open to Bids"

// MarketplaceItem is the denormalized projection of one shipment, vehicle
// listing or goods listing. ExternalID is the upsert key.
type MarketplaceItem struct {
	ID           string         `json:"id"`
	ExternalID   string         `json:"external_id"`
	Type         ItemType       `json:"type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Price        *float64       `json:"price"`
	PriceStr     string         `json:"price_str"`
	Location     string         `json:"location"`
	Images       []string       `json:"images"`
	OwnerID      string         `json:"owner_id"`
	ProviderName string         `json:"provider_name"`
	Status       ItemStatus     `json:"status"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ExternalID builders. One prefix per source so ids from different stores
// can never collide.
func CargoExternalID(loadID string) string      { return "cargo-" + loadID }
func VehicleExternalID(listingID string) string { return "vehicle-" + listingID }
func GoodsExternalID(listingID string) string   { return "goods-" + listingID }

// Flatten returns the item as a flat map with the type-specific metadata
// lifted to the top level, which is the shape read APIs serve. Core fields
// win over metadata keys of the same name.
func (it MarketplaceItem) Flatten() map[string]any {
	out := make(map[string]any, len(it.Metadata)+14)
	for k, v := range it.Metadata {
		out[k] = v
	}
	out["id"] = it.ID
	out["external_id"] = it.ExternalID
	out["type"] = it.Type
	out["title"] = it.Title
	out["description"] = it.Description
	out["price"] = it.Price
	out["price_str"] = it.PriceStr
	out["location"] = it.Location
	out["images"] = it.Images
	out["owner_id"] = it.OwnerID
	out["provider_name"] = it.ProviderName
	out["status"] = it.Status
	out["created_at"] = it.CreatedAt
	return out
}
