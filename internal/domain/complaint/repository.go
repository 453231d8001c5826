package complaint

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// Repository defines the interface for complaint persistence. Create and
// SaveWithLock persist the complaint together with its pending history
// records and delta outbox entries in a single transaction.
type Repository interface {
	// Create persists a new complaint atomically with its creation history
	// and outbox entries
	Create(ctx context.Context, c *Complaint, history []*HistoryRecord, entries []*stats.OutboxEntry) error
	// SaveWithLock updates a complaint with optimistic concurrency control.
	// It returns shared.ErrConcurrencyConflict when the stored version no
	// longer matches the loaded one.
	SaveWithLock(ctx context.Context, c *Complaint, history []*HistoryRecord, entries []*stats.OutboxEntry) error
	// FindByID retrieves a complaint by its internal ID
	FindByID(ctx context.Context, id uuid.UUID) (*Complaint, error)
	// FindByEntityID retrieves a complaint by its public identifier
	FindByEntityID(ctx context.Context, entityID string) (*Complaint, error)
	// FindByCustomer retrieves complaints for a customer with pagination
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[Complaint], error)
	// List retrieves complaints with pagination
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Complaint], error)
	// History retrieves the full transition log of a complaint, oldest first
	History(ctx context.Context, complaintID uuid.UUID) ([]*HistoryRecord, error)
}
