package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// Repository defines the interface for customer profile persistence
type Repository interface {
	// Apply folds a delta into the customer's rollup, creating the rollup
	// row on first contact. The whole apply is atomic; a delta whose dedup
	// key was already applied returns applied=false and changes nothing.
	Apply(ctx context.Context, d stats.Delta) (applied bool, err error)
	// FindByCustomerID retrieves a customer's rollup. A customer with no
	// applied deltas yet has no row; that is shared.ErrNotFound.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*CustomerProfile, error)
	// List retrieves rollups with pagination
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[CustomerProfile], error)
}
