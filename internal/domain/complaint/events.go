package complaint

import (
	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeComplaintOpened       = "complaint.opened"
	EventTypeComplaintTransitioned = "complaint.transitioned"
)

// ComplaintOpenedEvent is published when a new complaint enters the ledger
type ComplaintOpenedEvent struct {
	shared.BaseDomainEvent
	EntityID      string    `json:"entity_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	OrderEntityID string    `json:"order_entity_id,omitempty"`
	Subject       string    `json:"subject"`
}

// NewComplaintOpenedEvent creates a new complaint opened event
func NewComplaintOpenedEvent(c *Complaint) *ComplaintOpenedEvent {
	return &ComplaintOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeComplaintOpened, "Complaint", c.ID),
		EntityID:        c.EntityID,
		CustomerID:      c.CustomerID,
		OrderEntityID:   c.OrderEntityID,
		Subject:         c.Subject,
	}
}

// ComplaintTransitionedEvent is published for every status change after
// creation, self-transitions included
type ComplaintTransitionedEvent struct {
	shared.BaseDomainEvent
	EntityID    string          `json:"entity_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	FromStatus  ComplaintStatus `json:"from_status"`
	ToStatus    ComplaintStatus `json:"to_status"`
	ReopenCount int             `json:"reopen_count"`
	HistoryID   uuid.UUID       `json:"history_id"`
}

// NewComplaintTransitionedEvent creates a new complaint transitioned event
func NewComplaintTransitionedEvent(c *Complaint, from, to ComplaintStatus, historyID uuid.UUID) *ComplaintTransitionedEvent {
	return &ComplaintTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeComplaintTransitioned, "Complaint", c.ID),
		EntityID:        c.EntityID,
		CustomerID:      c.CustomerID,
		FromStatus:      from,
		ToStatus:        to,
		ReopenCount:     c.ReopenCount,
		HistoryID:       historyID,
	}
}
