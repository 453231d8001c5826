package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/stats"
)

// GormOutboxRepository implements stats.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GormOutboxRepository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*stats.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// FindPending retrieves pending entries up to the specified limit, oldest
// first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*stats.OutboxEntry, error) {
	var entries []*stats.OutboxEntry
	if err := r.db.WithContext(ctx).
		Where("status = ?", stats.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindRetryable retrieves failed entries whose retry time has passed
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*stats.OutboxEntry, error) {
	var entries []*stats.OutboxEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", stats.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkProcessing atomically claims entries by flipping them to PROCESSING.
// Entries another worker claimed in the meantime are skipped, so two
// workers never deliver the same entry concurrently.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*stats.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*stats.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&stats.OutboxEntry{}).
			Where("id IN ? AND status IN ?", ids,
				[]stats.OutboxStatus{stats.OutboxStatusPending, stats.OutboxStatusFailed}).
			Updates(map[string]interface{}{
				"status":     stats.OutboxStatusProcessing,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}

		return tx.
			Where("id IN ? AND status = ?", ids, stats.OutboxStatusProcessing).
			Order("created_at ASC").
			Find(&claimed).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update updates an existing outbox entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *stats.OutboxEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// DeleteOlderThan deletes sent entries older than the specified time
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", stats.OutboxStatusSent, before).
		Delete(&stats.OutboxEntry{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns count of entries for each status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[stats.OutboxStatus]int64, error) {
	type statusCount struct {
		Status stats.OutboxStatus
		Count  int64
	}
	var counts []statusCount
	if err := r.db.WithContext(ctx).
		Model(&stats.OutboxEntry{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&counts).Error; err != nil {
		return nil, err
	}

	result := make(map[stats.OutboxStatus]int64, len(counts))
	for _, c := range counts {
		result[c.Status] = c.Count
	}
	return result, nil
}

// Ensure GormOutboxRepository implements stats.OutboxRepository
var _ stats.OutboxRepository = (*GormOutboxRepository)(nil)
