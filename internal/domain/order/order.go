package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusPlaced          OrderStatus = "PLACED"
	StatusProcessing      OrderStatus = "PROCESSING"
	StatusShipped         OrderStatus = "SHIPPED"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	StatusReturned        OrderStatus = "RETURNED"
)

// IsValid checks if the status is a known OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturnRequested, StatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions leave this status
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// orderTransitions is the full transition table. Anything not listed here
// is an illegal transition, rejected without touching the order.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:          {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturned, StatusDelivered},
	StatusCancelled:       {},
	StatusReturned:        {},
}

// CanTransitionTo checks if transition to target status is allowed
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Order is the sales order ledger aggregate. MonetaryValue is frozen at
// creation; every later statistics adjustment reuses exactly that value, so
// create and cancel always net to zero for the customer rollup.
type Order struct {
	shared.BaseAggregateRoot
	EntityID      string          `gorm:"type:varchar(15);uniqueIndex;not null"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OwnerUserID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	MonetaryValue decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Status        OrderStatus     `gorm:"type:varchar(20);not null"`

	pendingHistory []*HistoryRecord `gorm:"-"`
	pendingDeltas  []stats.Delta    `gorm:"-"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a placed order. The entity identifier must already be
// allocated; creation never mints identifiers itself.
func NewOrder(entityID string, customerID, ownerUserID uuid.UUID, value decimal.Decimal, actor shared.Actor) (*Order, error) {
	if !sequence.IsIdentifier(entityID) {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed order identifier %q", entityID))
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	if ownerUserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Owner user ID cannot be empty")
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order value cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EntityID:          entityID,
		CustomerID:        customerID,
		OwnerUserID:       ownerUserID,
		MonetaryValue:     value,
		Status:            StatusPlaced,
	}

	record := o.recordHistory("", StatusPlaced, actor, "")
	delta := stats.NewDelta(customerID, record.ID)
	delta.OrderCountDelta = 1
	delta.OrderValueDelta = value
	o.pendingDeltas = append(o.pendingDeltas, delta)

	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// StartProcessing moves a placed order into processing
func (o *Order) StartProcessing(actor shared.Actor) error {
	return o.transition(StatusProcessing, actor, "")
}

// Ship marks a processing order as shipped
func (o *Order) Ship(actor shared.Actor) error {
	return o.transition(StatusShipped, actor, "")
}

// Deliver marks a shipped order as delivered
func (o *Order) Deliver(actor shared.Actor) error {
	return o.transition(StatusDelivered, actor, "")
}

// Cancel cancels an order that has not shipped yet. Cancellation reverses
// the order's contribution to the customer rollup.
func (o *Order) Cancel(actor shared.Actor, reason string) error {
	if err := o.transition(StatusCancelled, actor, reason); err != nil {
		return err
	}
	o.addReversalDelta()
	return nil
}

// RequestReturn opens a return on a delivered order
func (o *Order) RequestReturn(actor shared.Actor, reason string) error {
	return o.transition(StatusReturnRequested, actor, reason)
}

// ApproveReturn accepts a requested return. Like cancellation it reverses
// the order's contribution to the customer rollup.
func (o *Order) ApproveReturn(actor shared.Actor) error {
	if err := o.transition(StatusReturned, actor, ""); err != nil {
		return err
	}
	o.addReversalDelta()
	return nil
}

// RejectReturn declines a requested return, putting the order back to
// delivered. The rejection is an explicit transition with its own history
// record, never a silent revert.
func (o *Order) RejectReturn(actor shared.Actor, reason string) error {
	return o.transition(StatusDelivered, actor, reason)
}

func (o *Order) transition(target OrderStatus, actor shared.Actor, note string) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	record := o.recordHistory(from, target, actor, note)
	o.AddDomainEvent(NewOrderTransitionedEvent(o, from, target, record.ID))
	return nil
}

func (o *Order) recordHistory(from, to OrderStatus, actor shared.Actor, note string) *HistoryRecord {
	record := NewHistoryRecord(o.ID, o.EntityID, from, to, actor, note)
	o.pendingHistory = append(o.pendingHistory, record)
	return record
}

func (o *Order) addReversalDelta() {
	record := o.pendingHistory[len(o.pendingHistory)-1]
	delta := stats.NewDelta(o.CustomerID, record.ID)
	delta.OrderCountDelta = -1
	delta.OrderValueDelta = o.MonetaryValue.Neg()
	o.pendingDeltas = append(o.pendingDeltas, delta)
}

// PendingHistory returns the history records produced since the order was
// loaded. They are persisted in the same transaction as the order itself.
func (o *Order) PendingHistory() []*HistoryRecord {
	return o.pendingHistory
}

// PendingDeltas returns the statistics deltas produced since the order was
// loaded
func (o *Order) PendingDeltas() []stats.Delta {
	return o.pendingDeltas
}

// ClearPending clears pending history records and deltas after persistence
func (o *Order) ClearPending() {
	o.pendingHistory = nil
	o.pendingDeltas = nil
}
