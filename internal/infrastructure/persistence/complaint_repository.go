package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/complaint"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// GormComplaintRepository implements complaint.Repository using GORM
type GormComplaintRepository struct {
	db *gorm.DB
}

// NewGormComplaintRepository creates a new GormComplaintRepository
func NewGormComplaintRepository(db *gorm.DB) *GormComplaintRepository {
	return &GormComplaintRepository{db: db}
}

// Create persists a new complaint atomically with its creation history and
// outbox entries
func (r *GormComplaintRepository) Create(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryRecord, entries []*stats.OutboxEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return storageErr(err)
		}
		return appendComplaintLedgerRows(tx, history, entries)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormComplaintRepository) SaveWithLock(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryRecord, entries []*stats.OutboxEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := c.Version
		c.Version++
		c.UpdatedAt = time.Now()

		result := tx.Model(&complaint.Complaint{}).
			Where("id = ? AND version = ?", c.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":       c.Status,
				"assignee_id":  c.AssigneeID,
				"reopen_count": c.ReopenCount,
				"version":      c.Version,
				"updated_at":   c.UpdatedAt,
			})
		if result.Error != nil {
			return storageErr(result.Error)
		}
		if result.RowsAffected == 0 {
			c.Version = currentVersion
			return shared.ErrConcurrencyConflict
		}

		return appendComplaintLedgerRows(tx, history, entries)
	})
}

// FindByID finds a complaint by its internal ID
func (r *GormComplaintRepository) FindByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	var c complaint.Complaint
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &c, nil
}

// FindByEntityID finds a complaint by its public identifier
func (r *GormComplaintRepository) FindByEntityID(ctx context.Context, entityID string) (*complaint.Complaint, error) {
	var c complaint.Complaint
	if err := r.db.WithContext(ctx).First(&c, "entity_id = ?", entityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &c, nil
}

// FindByCustomer finds complaints for a customer with pagination
func (r *GormComplaintRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[complaint.Complaint], error) {
	query := r.db.WithContext(ctx).Model(&complaint.Complaint{}).Where("customer_id = ?", customerID)
	return r.paginate(query, filter)
}

// List finds complaints with pagination
func (r *GormComplaintRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[complaint.Complaint], error) {
	query := r.db.WithContext(ctx).Model(&complaint.Complaint{})
	return r.paginate(query, filter)
}

// History retrieves the full transition log of a complaint, oldest first
func (r *GormComplaintRepository) History(ctx context.Context, complaintID uuid.UUID) ([]*complaint.HistoryRecord, error) {
	var records []*complaint.HistoryRecord
	if err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("recorded_at ASC").
		Find(&records).Error; err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

func (r *GormComplaintRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[complaint.Complaint], error) {
	query = applyComplaintFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, storageErr(err)
	}

	sortField := ValidateSortField(filter.OrderBy, ComplaintSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var complaints []complaint.Complaint
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&complaints).Error; err != nil {
		return nil, storageErr(err)
	}

	result := shared.NewPaginated(complaints, total, filter.Page, filter.PageSize)
	return &result, nil
}

func applyComplaintFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "assignee_id":
			query = query.Where("assignee_id = ?", value)
		case "owner_user_id":
			query = query.Where("owner_user_id = ?", value)
		}
	}
	return query
}

func appendComplaintLedgerRows(tx *gorm.DB, history []*complaint.HistoryRecord, entries []*stats.OutboxEntry) error {
	for _, record := range history {
		if err := tx.Create(record).Error; err != nil {
			return storageErr(err)
		}
	}
	for _, entry := range entries {
		if err := tx.Create(entry).Error; err != nil {
			return storageErr(err)
		}
	}
	return nil
}

// Ensure GormComplaintRepository implements complaint.Repository
var _ complaint.Repository = (*GormComplaintRepository)(nil)
