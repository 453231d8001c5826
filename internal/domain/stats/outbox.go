package stats

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutboxStatus represents the delivery status of a delta outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry is a statistics delta awaiting delivery to the customer
// aggregate. Entries are written in the same transaction as the entity and
// history record that produced them; a background worker delivers them
// out-of-band. A permanently failing entry goes DEAD and leaves the
// aggregate stale until an operator intervenes; this is never a ledger
// error.
type OutboxEntry struct {
	ID                      uuid.UUID
	CustomerID              uuid.UUID
	EntityID                string
	DedupKey                uuid.UUID
	OrderCountDelta         int64
	OrderValueDelta         decimal.Decimal
	ComplaintCountDelta     int64
	OpenComplaintCountDelta int64
	Status                  OutboxStatus
	RetryCount              int
	MaxRetries              int
	LastError               string
	NextRetryAt             *time.Time
	ProcessedAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// TableName returns the table name for GORM
func (OutboxEntry) TableName() string {
	return "delta_outbox"
}

// NewOutboxEntry creates a pending outbox entry for a delta produced by the
// entity identified by entityID
func NewOutboxEntry(entityID string, delta Delta) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:                      uuid.New(),
		CustomerID:              delta.CustomerID,
		EntityID:                entityID,
		DedupKey:                delta.DedupKey,
		OrderCountDelta:         delta.OrderCountDelta,
		OrderValueDelta:         delta.OrderValueDelta,
		ComplaintCountDelta:     delta.ComplaintCountDelta,
		OpenComplaintCountDelta: delta.OpenComplaintCountDelta,
		Status:                  OutboxStatusPending,
		MaxRetries:              DefaultMaxRetries,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// Delta reconstructs the statistics delta carried by the entry
func (e *OutboxEntry) Delta() Delta {
	return Delta{
		CustomerID:              e.CustomerID,
		OrderCountDelta:         e.OrderCountDelta,
		OrderValueDelta:         e.OrderValueDelta,
		ComplaintCountDelta:     e.ComplaintCountDelta,
		OpenComplaintCountDelta: e.OpenComplaintCountDelta,
		DedupKey:                e.DedupKey,
	}
}

// CanRetry returns true if the entry can be retried
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing marks the entry as being delivered
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSent marks the entry as successfully applied at the aggregate
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure and schedules the next attempt with
// exponential backoff, or moves the entry to DEAD when retries exhaust
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
	} else {
		e.Status = OutboxStatusFailed
		// Exponential backoff: 1s, 2s, 4s, 8s, ...
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
		nextRetry := time.Now().Add(backoff)
		e.NextRetryAt = &nextRetry
	}
}

// IsDead returns true if delivery has been abandoned
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines the interface for delta outbox persistence
type OutboxRepository interface {
	// Save persists one or more outbox entries; callers inside an engine
	// transaction use SaveTx instead
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending retrieves pending entries up to the specified limit
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable retrieves failed entries that are due for retry
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing atomically claims entries and returns them
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// Update updates an existing outbox entry
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan deletes sent entries older than the specified time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns count of entries for each status
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
