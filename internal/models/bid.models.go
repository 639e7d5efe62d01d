package models

import "time"

type BidStatus string

const (
	BidPending  BidStatus = "Pending"
	BidAccepted BidStatus = "Accepted"
	BidRejected BidStatus = "Rejected"
)

// Bid is a driver's proposed price for a load.
type Bid struct {
	ID        string    `json:"id"`
	LoadID    string    `json:"load_id"`
	DriverID  string    `json:"driver_id"`
	Amount    float64   `json:"amount"`
	Status    BidStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ShipperBid is one row of the shipper's pending-bids view: the bid joined
// with the load it targets and the bidding driver's track record.
type ShipperBid struct {
	Bid
	Cargo              string   `json:"cargo"`
	Origin             string   `json:"origin"`
	Destination        string   `json:"destination"`
	LoadStatus         string   `json:"load_status"`
	DriverAvgRating    *float64 `json:"driver_avg_rating"`
	DriverRatingsCount int      `json:"driver_ratings_count"`
}
