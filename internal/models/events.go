package models

import "time"

// Event types published to the order-events topic
const (
	EventTypeOrderSubmitted = "ORDER_SUBMITTED"
	EventTypeOrderFailed    = "ORDER_FAILED"
)

// BaseEvent contains fields common to all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent is published after the remote catalog accepts an order
type OrderSubmittedEvent struct {
	BaseEvent
	Reference     string  `json:"reference"`
	RemoteOrderID int64   `json:"remote_order_id"`
	ItemCount     int     `json:"item_count"`
	Total         float64 `json:"total"`
}

// OrderFailedEvent is published when the remote catalog rejects an order
type OrderFailedEvent struct {
	BaseEvent
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}
