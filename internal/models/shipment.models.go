package models

import "time"

// ShipmentStatus is the lifecycle state of a load. The string values are the
// display labels shown to shippers and drivers, and are persisted as-is.
type ShipmentStatus string

const (
	StatusBiddingOpen           ShipmentStatus = "Bidding Open"
	StatusFindingDriver         ShipmentStatus = "Finding Driver"
	StatusWaitingCommitment     ShipmentStatus = "Waiting for Driver Commitment"
	StatusPendingDeposit        ShipmentStatus = "Pending Deposit"
	StatusReadyForPickup        ShipmentStatus = "Ready for Pickup"
	StatusInTransit             ShipmentStatus = "In Transit"
	StatusActiveWaitingDelivery ShipmentStatus = "Active (Waiting Delivery)"
	StatusDelivered             ShipmentStatus = "Delivered"
	StatusCompleted             ShipmentStatus = "Completed"
	StatusRejected              ShipmentStatus = "Rejected"
	StatusCancelled             ShipmentStatus = "Cancelled"
)

var knownStatuses = map[ShipmentStatus]struct{}{
	StatusBiddingOpen:           {},
	StatusFindingDriver:         {},
	StatusWaitingCommitment:     {},
	StatusPendingDeposit:        {},
	StatusReadyForPickup:        {},
	StatusInTransit:             {},
	StatusActiveWaitingDelivery: {},
	StatusDelivered:             {},
	StatusCompleted:             {},
	StatusRejected:              {},
	StatusCancelled:             {},
}

func (s ShipmentStatus) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// OpenForBids reports whether drivers may still bid and the shipper may still
// accept a bid.
func (s ShipmentStatus) OpenForBids() bool {
	return s == StatusBiddingOpen || s == StatusFindingDriver
}

// OpenStatuses lists the states in which a load accepts bids.
var OpenStatuses = []ShipmentStatus{StatusBiddingOpen, StatusFindingDriver}

// ActiveJobStatuses are the states in which an assigned driver is working the load.
var ActiveJobStatuses = []ShipmentStatus{
	StatusPendingDeposit,
	StatusReadyForPickup,
	StatusInTransit,
	StatusActiveWaitingDelivery,
}

// EarningStatuses are the states that count towards a driver's revenue.
var EarningStatuses = []ShipmentStatus{StatusDelivered, StatusCompleted}

func (s ShipmentStatus) Earning() bool {
	return s == StatusDelivered || s == StatusCompleted
}

// statusTags maps the short tags accepted by updateStatus to their status.
var statusTags = map[string]ShipmentStatus{
	"in_transit":       StatusInTransit,
	"delivered":        StatusDelivered,
	"waiting_delivery": StatusActiveWaitingDelivery,
}

// ParseTrackingStatus resolves the free-transition targets of updateStatus.
// Both the display label and its tag are accepted.
func ParseTrackingStatus(raw string) (ShipmentStatus, bool) {
	if s, ok := statusTags[raw]; ok {
		return s, true
	}
	for _, s := range statusTags {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

type DepositStatus string

const (
	DepositUnpaid  DepositStatus = "Unpaid"
	DepositSecured DepositStatus = "Secured"
)

type CommitDecision string

const (
	DecisionCommit  CommitDecision = "COMMIT"
	DecisionDecline CommitDecision = "DECLINE"
)

// Shipment is a shipper's request to move cargo ("load").
type Shipment struct {
	ID               string         `json:"id"`
	ShipperID        string         `json:"shipper_id"`
	Origin           string         `json:"origin"`
	Destination      string         `json:"destination"`
	Cargo            string         `json:"cargo"`
	Weight           float64        `json:"weight"`
	Quantity         int            `json:"quantity"`
	Price            *float64       `json:"price"` // nil means open to bids
	Status           ShipmentStatus `json:"status"`
	AssignedDriverID *string        `json:"assigned_driver_id"`
	BidderIDs        BidderSet      `json:"bidder_ids"`
	PickupDate       string         `json:"pickup_date"`
	DepositStatus    DepositStatus  `json:"deposit_status"`
	DriverRating     *int           `json:"driver_rating"`
	RatingComment    string         `json:"rating_comment,omitempty"`
	Images           []string       `json:"images"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeliveredAt      *time.Time     `json:"delivered_at,omitempty"`
}

// Route is the combined "origin → destination" label.
func (s *Shipment) Route() string {
	return s.Origin + " → " + s.Destination
}
