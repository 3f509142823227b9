package orderflow

import "github.com/google/uuid"

// EventType names a live update.
type EventType string

const (
	EventOrderCreated       EventType = "order-created"
	EventOrderStatusChanged EventType = "order-status-changed"
)

// Event is the JSON message pushed over the live channel.
type Event struct {
	Type    EventType `json:"type"`
	OrderID uuid.UUID `json:"orderId"`
	Status  Status    `json:"status,omitempty"`
}

// OrderCreated builds the event published after an order is inserted.
func OrderCreated(orderID uuid.UUID) Event {
	return Event{Type: EventOrderCreated, OrderID: orderID}
}

// StatusChanged builds the event published after a status update commits.
func StatusChanged(orderID uuid.UUID, status Status) Event {
	return Event{Type: EventOrderStatusChanged, OrderID: orderID, Status: status}
}
