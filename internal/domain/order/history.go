package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
)

// HistoryRecord is one append-only entry in an order's transition log.
// FromStatus is empty only for the creation record. Records are never
// updated or deleted; the current status is always reproducible by folding
// the history in order.
type HistoryRecord struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	EntityID   string           `gorm:"type:varchar(15);not null;index"`
	FromStatus OrderStatus      `gorm:"type:varchar(20)"`
	ToStatus   OrderStatus      `gorm:"type:varchar(20);not null"`
	ActorID    uuid.UUID        `gorm:"type:uuid;not null"`
	ActorRole  shared.ActorRole `gorm:"type:varchar(10);not null"`
	Note       string           `gorm:"type:text"`
	RecordedAt time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HistoryRecord) TableName() string {
	return "order_history"
}

// NewHistoryRecord creates a history record for a single transition
func NewHistoryRecord(orderID uuid.UUID, entityID string, from, to OrderStatus, actor shared.Actor, note string) *HistoryRecord {
	return &HistoryRecord{
		ID:         uuid.New(),
		OrderID:    orderID,
		EntityID:   entityID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Note:       note,
		RecordedAt: time.Now(),
	}
}

// ReplayStatus folds a history log, ordered oldest first, into the status
// it produces. It fails if the log does not start with a creation record or
// contains an illegal transition, which would mean the log was tampered with
// or recorded out of order.
func ReplayStatus(records []*HistoryRecord) (OrderStatus, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("empty history log")
	}
	first := records[0]
	if first.FromStatus != "" || first.ToStatus != StatusPlaced {
		return "", fmt.Errorf("history log does not start with a creation record")
	}
	status := first.ToStatus
	for _, r := range records[1:] {
		if r.FromStatus != status {
			return "", fmt.Errorf("history record %s starts from %s but log is at %s", r.ID, r.FromStatus, status)
		}
		if !status.CanTransitionTo(r.ToStatus) {
			return "", fmt.Errorf("history record %s is an illegal transition %s -> %s", r.ID, r.FromStatus, r.ToStatus)
		}
		status = r.ToStatus
	}
	return status, nil
}
