package complaint

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// ComplaintStatus represents the lifecycle state of a complaint
type ComplaintStatus string

const (
	StatusOpen       ComplaintStatus = "OPEN"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusClosed     ComplaintStatus = "CLOSED"
)

// IsValid checks if the status is a known ComplaintStatus
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// String returns the string representation of ComplaintStatus
func (s ComplaintStatus) String() string {
	return string(s)
}

// IsOpen reports whether the status counts toward the customer's open
// complaint rollup. Deltas are derived from changes of this flag, so a
// transition that does not flip it emits none.
func (s ComplaintStatus) IsOpen() bool {
	return s == StatusOpen || s == StatusInProgress
}

// complaintTransitions is the full transition table. Reassigning an
// in-progress complaint and resolving an already resolved one are legal
// and listed as self-transitions, so a replayed history log containing
// them stays valid.
var complaintTransitions = map[ComplaintStatus][]ComplaintStatus{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusInProgress, StatusOpen, StatusResolved},
	StatusResolved:   {StatusResolved, StatusClosed, StatusOpen},
	StatusClosed:     {},
}

// CanTransitionTo checks if transition to target status is allowed
func (s ComplaintStatus) CanTransitionTo(target ComplaintStatus) bool {
	for _, allowed := range complaintTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Complaint is the grievance ledger aggregate. ReopenCount only ever grows;
// resolving again after a reopen does not reset it.
type Complaint struct {
	shared.BaseAggregateRoot
	EntityID      string          `gorm:"type:varchar(15);uniqueIndex;not null"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OwnerUserID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderEntityID string          `gorm:"type:varchar(15);index"`
	Subject       string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text"`
	Status        ComplaintStatus `gorm:"type:varchar(20);not null"`
	AssigneeID    *uuid.UUID      `gorm:"type:uuid"`
	ReopenCount   int             `gorm:"not null;default:0"`

	pendingHistory []*HistoryRecord `gorm:"-"`
	pendingDeltas  []stats.Delta    `gorm:"-"`
}

// TableName returns the table name for GORM
func (Complaint) TableName() string {
	return "complaints"
}

// NewComplaint creates an open complaint. orderEntityID optionally links the
// complaint to the order it is about; the link is informational and is not
// validated against the order ledger here.
func NewComplaint(entityID string, customerID, ownerUserID uuid.UUID, orderEntityID, subject, description string, actor shared.Actor) (*Complaint, error) {
	if !sequence.IsIdentifier(entityID) {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed complaint identifier %q", entityID))
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	if ownerUserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Owner user ID cannot be empty")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Complaint subject cannot be empty")
	}
	if orderEntityID != "" && !sequence.IsIdentifier(orderEntityID) {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed order identifier %q", orderEntityID))
	}

	c := &Complaint{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EntityID:          entityID,
		CustomerID:        customerID,
		OwnerUserID:       ownerUserID,
		OrderEntityID:     orderEntityID,
		Subject:           subject,
		Description:       description,
		Status:            StatusOpen,
	}

	record := c.recordHistory("", StatusOpen, actor, "")
	delta := stats.NewDelta(customerID, record.ID)
	delta.ComplaintCountDelta = 1
	delta.OpenComplaintCountDelta = 1
	c.pendingDeltas = append(c.pendingDeltas, delta)

	c.AddDomainEvent(NewComplaintOpenedEvent(c))
	return c, nil
}

// Assign hands the complaint to an agent. On an open complaint this is a
// compound operation: assignee and status change together and produce a
// single history record. Reassigning while in progress keeps the status.
func (c *Complaint) Assign(assigneeID uuid.UUID, actor shared.Actor) error {
	if assigneeID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Assignee ID cannot be empty")
	}
	switch c.Status {
	case StatusOpen:
		c.AssigneeID = &assigneeID
		return c.transition(StatusInProgress, actor, fmt.Sprintf("assigned to %s", assigneeID))
	case StatusInProgress:
		c.AssigneeID = &assigneeID
		return c.transition(StatusInProgress, actor, fmt.Sprintf("reassigned to %s", assigneeID))
	default:
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot assign a complaint in status %s", c.Status))
	}
}

// Resolve marks the complaint resolved. It is legal from every status except
// closed; resolving an already resolved complaint records the attempt but
// does not change the customer's open rollup again.
func (c *Complaint) Resolve(actor shared.Actor, note string) error {
	return c.transition(StatusResolved, actor, note)
}

// Close finalizes a resolved complaint. Closed is terminal.
func (c *Complaint) Close(actor shared.Actor, note string) error {
	return c.transition(StatusClosed, actor, note)
}

// Reopen puts a resolved complaint back to open and bumps the reopen counter
func (c *Complaint) Reopen(actor shared.Actor, reason string) error {
	if err := c.transition(StatusOpen, actor, reason); err != nil {
		return err
	}
	c.ReopenCount++
	c.AssigneeID = nil
	return nil
}

func (c *Complaint) transition(target ComplaintStatus, actor shared.Actor, note string) error {
	if !c.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition complaint from %s to %s", c.Status, target))
	}
	from := c.Status
	c.Status = target
	record := c.recordHistory(from, target, actor, note)

	if from.IsOpen() != target.IsOpen() {
		delta := stats.NewDelta(c.CustomerID, record.ID)
		if target.IsOpen() {
			delta.OpenComplaintCountDelta = 1
		} else {
			delta.OpenComplaintCountDelta = -1
		}
		c.pendingDeltas = append(c.pendingDeltas, delta)
	}

	c.AddDomainEvent(NewComplaintTransitionedEvent(c, from, target, record.ID))
	return nil
}

func (c *Complaint) recordHistory(from, to ComplaintStatus, actor shared.Actor, note string) *HistoryRecord {
	record := NewHistoryRecord(c.ID, c.EntityID, from, to, actor, note)
	c.pendingHistory = append(c.pendingHistory, record)
	return record
}

// PendingHistory returns the history records produced since the complaint
// was loaded
func (c *Complaint) PendingHistory() []*HistoryRecord {
	return c.pendingHistory
}

// PendingDeltas returns the statistics deltas produced since the complaint
// was loaded
func (c *Complaint) PendingDeltas() []stats.Delta {
	return c.pendingDeltas
}

// ClearPending clears pending history records and deltas after persistence
func (c *Complaint) ClearPending() {
	c.pendingHistory = nil
	c.pendingDeltas = nil
}
