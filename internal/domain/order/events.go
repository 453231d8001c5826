package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderly/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeOrderPlaced       = "order.placed"
	EventTypeOrderTransitioned = "order.transitioned"
)

// OrderPlacedEvent is published when a new order enters the ledger
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	EntityID      string          `json:"entity_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	MonetaryValue decimal.Decimal `json:"monetary_value"`
}

// NewOrderPlacedEvent creates a new order placed event
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, "Order", o.ID),
		EntityID:        o.EntityID,
		CustomerID:      o.CustomerID,
		MonetaryValue:   o.MonetaryValue,
	}
}

// OrderTransitionedEvent is published for every status change after creation
type OrderTransitionedEvent struct {
	shared.BaseDomainEvent
	EntityID   string      `json:"entity_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	HistoryID  uuid.UUID   `json:"history_id"`
}

// NewOrderTransitionedEvent creates a new order transitioned event
func NewOrderTransitionedEvent(o *Order, from, to OrderStatus, historyID uuid.UUID) *OrderTransitionedEvent {
	return &OrderTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderTransitioned, "Order", o.ID),
		EntityID:        o.EntityID,
		CustomerID:      o.CustomerID,
		FromStatus:      from,
		ToStatus:        to,
		HistoryID:       historyID,
	}
}
