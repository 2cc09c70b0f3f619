// Package notifications delivers order lifecycle events to customers (email) and
// to other systems (NATS) without blocking the request that produced them.
package notifications

import (
	"strings"
	"time"

	"pulgax-store/internal/models"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderRefunded      EventType = "order.refunded"
)

// Event is a snapshot of an order taken right after a lifecycle change.
type Event struct {
	Type           EventType          `json:"type"`
	Order          models.Order       `json:"order"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// Subject is the NATS subject the event is published on, e.g. orders.created.
func (e Event) Subject() string {
	return "orders." + strings.TrimPrefix(string(e.Type), "order.")
}
