package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/order"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists a new order atomically with its creation history and
// outbox entries
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order, history []*order.HistoryRecord, entries []*stats.OutboxEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return storageErr(err)
		}
		return appendOrderLedgerRows(tx, history, entries)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order, history []*order.HistoryRecord, entries []*stats.OutboxEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := o.Version
		o.Version++
		o.UpdatedAt = time.Now()

		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":     o.Status,
				"version":    o.Version,
				"updated_at": o.UpdatedAt,
			})
		if result.Error != nil {
			return storageErr(result.Error)
		}
		if result.RowsAffected == 0 {
			o.Version = currentVersion
			return shared.ErrConcurrencyConflict
		}

		return appendOrderLedgerRows(tx, history, entries)
	})
}

// FindByID finds an order by its internal ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &o, nil
}

// FindByEntityID finds an order by its public identifier
func (r *GormOrderRepository) FindByEntityID(ctx context.Context, entityID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, "entity_id = ?", entityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &o, nil
}

// FindByCustomer finds orders for a customer with pagination
func (r *GormOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("customer_id = ?", customerID)
	return r.paginate(query, filter)
}

// List finds orders with pagination
func (r *GormOrderRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	return r.paginate(query, filter)
}

// History retrieves the full transition log of an order, oldest first
func (r *GormOrderRepository) History(ctx context.Context, orderID uuid.UUID) ([]*order.HistoryRecord, error) {
	var records []*order.HistoryRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at ASC").
		Find(&records).Error; err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

func (r *GormOrderRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[order.Order], error) {
	query = applyOrderFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, storageErr(err)
	}

	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var orders []order.Order
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		return nil, storageErr(err)
	}

	result := shared.NewPaginated(orders, total, filter.Page, filter.PageSize)
	return &result, nil
}

func applyOrderFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "owner_user_id":
			query = query.Where("owner_user_id = ?", value)
		}
	}
	return query
}

// appendOrderLedgerRows inserts history records and delta outbox entries
// inside the caller's transaction. History is append-only; nothing here
// updates.
func appendOrderLedgerRows(tx *gorm.DB, history []*order.HistoryRecord, entries []*stats.OutboxEntry) error {
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

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
