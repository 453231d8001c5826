package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// Repository defines the interface for order persistence. Create and
// SaveWithLock persist the order together with its pending history records
// and delta outbox entries in a single transaction.
type Repository interface {
	// Create persists a new order atomically with its creation history and
	// outbox entries
	Create(ctx context.Context, o *Order, history []*HistoryRecord, entries []*stats.OutboxEntry) error
	// SaveWithLock updates an order with optimistic concurrency control.
	// It returns shared.ErrConcurrencyConflict when the stored version no
	// longer matches the loaded one.
	SaveWithLock(ctx context.Context, o *Order, history []*HistoryRecord, entries []*stats.OutboxEntry) error
	// FindByID retrieves an order by its internal ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByEntityID retrieves an order by its public identifier
	FindByEntityID(ctx context.Context, entityID string) (*Order, error)
	// FindByCustomer retrieves orders for a customer with pagination
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[Order], error)
	// List retrieves orders with pagination
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Order], error)
	// History retrieves the full transition log of an order, oldest first
	History(ctx context.Context, orderID uuid.UUID) ([]*HistoryRecord, error)
}
