package complaint

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
)

// HistoryRecord is one append-only entry in a complaint's transition log.
// FromStatus is empty only for the creation record. A self-transition
// (reassign, repeat resolve) is a real record; the log keeps every attempt.
type HistoryRecord struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ComplaintID uuid.UUID        `gorm:"type:uuid;not null;index"`
	EntityID    string           `gorm:"type:varchar(15);not null;index"`
	FromStatus  ComplaintStatus  `gorm:"type:varchar(20)"`
	ToStatus    ComplaintStatus  `gorm:"type:varchar(20);not null"`
	ActorID     uuid.UUID        `gorm:"type:uuid;not null"`
	ActorRole   shared.ActorRole `gorm:"type:varchar(10);not null"`
	Note        string           `gorm:"type:text"`
	RecordedAt  time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HistoryRecord) TableName() string {
	return "complaint_history"
}

// NewHistoryRecord creates a history record for a single transition
func NewHistoryRecord(complaintID uuid.UUID, entityID string, from, to ComplaintStatus, actor shared.Actor, note string) *HistoryRecord {
	return &HistoryRecord{
		ID:          uuid.New(),
		ComplaintID: complaintID,
		EntityID:    entityID,
		FromStatus:  from,
		ToStatus:    to,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		Note:        note,
		RecordedAt:  time.Now(),
	}
}

// ReplayStatus folds a history log, ordered oldest first, into the status it
// produces. It fails on a log that does not start with a creation record or
// that contains an illegal transition.
func ReplayStatus(records []*HistoryRecord) (ComplaintStatus, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("empty history log")
	}
	first := records[0]
	if first.FromStatus != "" || first.ToStatus != StatusOpen {
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
