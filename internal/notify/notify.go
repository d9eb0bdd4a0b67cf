package notify

import (
	"time"
)

type EventType string

const (
	EventNewOrder    EventType = "new_order"
	EventOrderStatus EventType = "order_status_update"
)

// Event is the payload pushed to consumers and canteen staff. Delivery is
// best-effort: emission happens only after the owning transaction commits and
// never blocks or fails the caller.
type Event struct {
	Type           EventType `json:"type"`
	OrderID        int64     `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	CanteenID      int64     `json:"canteenId"`
	UserID         string    `json:"userId"`
	TotalAmount    string    `json:"totalAmount,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Notifier is the outbound side channel the order flow emits into.
type Notifier interface {
	NotifyUser(userID string, ev Event)
	NotifyCanteen(canteenID int64, ev Event)
}
