package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/profile"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// GormProfileRepository implements profile.Repository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// Apply folds a delta into the customer's rollup. The insert into
// applied_deltas and the counter update share one transaction; the primary
// key on the dedup key makes a replayed delivery a no-op. Counters are
// adjusted inside the database, never read-modify-written, so concurrent
// deltas for the same customer cannot lose updates.
func (r *GormProfileRepository) Apply(ctx context.Context, d stats.Delta) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := tx.Exec(`
			INSERT INTO applied_deltas (dedup_key, customer_id, applied_at)
			VALUES (?, ?, NOW())
			ON CONFLICT (dedup_key) DO NOTHING`,
			d.DedupKey, d.CustomerID,
		)
		if marker.Error != nil {
			return storageErr(marker.Error)
		}
		if marker.RowsAffected == 0 {
			// already applied
			return nil
		}

		result := tx.Exec(`
			INSERT INTO customer_profiles
				(customer_id, order_count, total_order_value, complaint_count, open_complaint_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NOW(), NOW())
			ON CONFLICT (customer_id) DO UPDATE SET
				order_count          = customer_profiles.order_count + EXCLUDED.order_count,
				total_order_value    = customer_profiles.total_order_value + EXCLUDED.total_order_value,
				complaint_count      = customer_profiles.complaint_count + EXCLUDED.complaint_count,
				open_complaint_count = customer_profiles.open_complaint_count + EXCLUDED.open_complaint_count,
				updated_at           = NOW()`,
			d.CustomerID, d.OrderCountDelta, d.OrderValueDelta,
			d.ComplaintCountDelta, d.OpenComplaintCountDelta,
		)
		if result.Error != nil {
			return storageErr(result.Error)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// FindByCustomerID retrieves a customer's rollup
func (r *GormProfileRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*profile.CustomerProfile, error) {
	var p profile.CustomerProfile
	if err := r.db.WithContext(ctx).First(&p, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &p, nil
}

// List retrieves rollups with pagination
func (r *GormProfileRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[profile.CustomerProfile], error) {
	query := r.db.WithContext(ctx).Model(&profile.CustomerProfile{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, storageErr(err)
	}

	sortField := ValidateSortField(filter.OrderBy, ProfileSortFields, "updated_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var profiles []profile.CustomerProfile
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order(sortField + " " + sortOrder).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&profiles).Error; err != nil {
		return nil, storageErr(err)
	}

	result := shared.NewPaginated(profiles, total, filter.Page, filter.PageSize)
	return &result, nil
}

// PruneAppliedDeltas deletes dedup markers older than the retention window.
// The rollup keeps its values; only replay protection for very old deltas
// is given up.
func (r *GormProfileRepository) PruneAppliedDeltas(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("applied_at < ?", before).
		Delete(&profile.AppliedDelta{})
	return result.RowsAffected, storageErr(result.Error)
}

// Ensure GormProfileRepository implements profile.Repository
var _ profile.Repository = (*GormProfileRepository)(nil)
