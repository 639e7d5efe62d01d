// Package fanout pushes state changes to connected clients, either to every
// session of one user (directed) or to every session (broadcast). Delivery is
// best effort: there is no offline queue.
package fanout

import "context"

// Server -> client events.
const (
	EventMarketDataUpdate       = "market_data_update"
	EventShipperShipmentsUpdate = "shipper_shipments_update"
	EventShipperBidsUpdate      = "shipper_bids_update"
	EventNewMessage             = "new_message"
	EventTyping                 = "typing"
	EventStopTyping             = "stop_typing"
	EventDepositReminder        = "deposit_reminder"
	EventError                  = "error"
)

// Client -> server events.
const (
	EventJoinRoom                = "join_room"
	EventRequestMarketData       = "request_market_data"
	EventRequestShipperShipments = "request_shipper_shipments"
	EventRequestShipperBids      = "request_shipper_bids"
	EventSendMessage             = "send_message"
)

// Notifier is the port services use to reach connected clients. Errors only
// report that the payload could not be encoded; an absent recipient is not an
// error.
type Notifier interface {
	SendToUser(ctx context.Context, userID, event string, payload any) error
	Broadcast(ctx context.Context, event string, payload any) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) SendToUser(context.Context, string, string, any) error { return nil }
func (Nop) Broadcast(context.Context, string, any) error          { return nil }
