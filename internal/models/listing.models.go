package models

import "time"

// ListingKind names the two listing sources that feed the marketplace besides
// shipments.
type ListingKind string

const (
	ListingVehicle ListingKind = "vehicles"
	ListingGoods   ListingKind = "goods"
)

// VehicleListing advertises a truck (or fleet) available for hire.
type VehicleListing struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ProviderName string    `json:"provider_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Capacity     float64   `json:"capacity"` // tons
	Route        string    `json:"route"`
	Manufacturer string    `json:"manufacturer"`
	Model        string    `json:"model"`
	Location     string    `json:"location"`
	Price        *float64  `json:"price"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GoodsListing advertises hardware or goods for sale.
type GoodsListing struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ProviderName string    `json:"provider_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Stock        int       `json:"stock"`
	Location     string    `json:"location"`
	Price        *float64  `json:"price"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
