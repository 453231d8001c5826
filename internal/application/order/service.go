package order

import (
	"context"
	"time"

	"github.com/orderly/backend/internal/domain/order"
	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// Service handles order lifecycle operations
type Service struct {
	repo           order.Repository
	allocator      sequence.Allocator
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewService creates a new order Service
func NewService(repo order.Repository, allocator sequence.Allocator) *Service {
	return &Service{
		repo:      repo,
		allocator: allocator,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-service integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create places a new order. The identifier is allocated before anything is
// persisted; an allocation failure aborts the whole request and the number,
// if any was burned, is simply never used.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	entityID, err := s.allocator.Next(ctx, sequence.KindOrder, s.now().Year())
	if err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if req.OwnerUserID != nil {
		if !actor.Role.IsPrivileged() {
			return nil, shared.ErrForbidden
		}
		ownerID = *req.OwnerUserID
	}

	o, err := order.NewOrder(entityID, req.CustomerID, ownerID, req.MonetaryValue, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o, o.PendingHistory(), outboxEntries(o)); err != nil {
		return nil, err
	}
	o.ClearPending()
	s.publishEvents(ctx, o)

	response := ToOrderResponse(o)
	return &response, nil
}

// GetByEntityID retrieves an order by its public identifier
func (s *Service) GetByEntityID(ctx context.Context, actor shared.Actor, entityID string) (*OrderResponse, error) {
	o, err := s.loadAccessible(ctx, actor, entityID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// List retrieves orders with filtering and pagination. Unprivileged callers
// only ever see their own orders.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}

	if !actor.Role.IsPrivileged() {
		domainFilter.Filters["owner_user_id"] = actor.UserID
	}

	var result *shared.Paginated[order.Order]
	var err error
	if filter.CustomerID != nil {
		result, err = s.repo.FindByCustomer(ctx, *filter.CustomerID, domainFilter)
	} else {
		result, err = s.repo.List(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(result.Items), result.Total, nil
}

// History retrieves the full transition log of an order, oldest first
func (s *Service) History(ctx context.Context, actor shared.Actor, entityID string) ([]HistoryRecordResponse, error) {
	o, err := s.loadAccessible(ctx, actor, entityID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.History(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return ToHistoryResponses(records), nil
}

// StartProcessing moves a placed order into processing
func (s *Service) StartProcessing(ctx context.Context, actor shared.Actor, entityID string) (*OrderResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.StartProcessing(actor)
	})
}

// Ship marks a processing order as shipped
func (s *Service) Ship(ctx context.Context, actor shared.Actor, entityID string) (*OrderResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.Ship(actor)
	})
}

// Deliver marks a shipped order as delivered
func (s *Service) Deliver(ctx context.Context, actor shared.Actor, entityID string) (*OrderResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.Deliver(actor)
	})
}

// Cancel cancels an order. The owner may cancel their own order; privileged
// roles may cancel any.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, entityID string, req CancelOrderRequest) (*OrderResponse, error) {
	return s.ownerTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.Cancel(actor, req.Reason)
	})
}

// RequestReturn opens a return on a delivered order
func (s *Service) RequestReturn(ctx context.Context, actor shared.Actor, entityID string, req ReturnRequest) (*OrderResponse, error) {
	return s.ownerTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.RequestReturn(actor, req.Reason)
	})
}

// ApproveReturn accepts a requested return
func (s *Service) ApproveReturn(ctx context.Context, actor shared.Actor, entityID string) (*OrderResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.ApproveReturn(actor)
	})
}

// RejectReturn declines a requested return, reverting the order to delivered
func (s *Service) RejectReturn(ctx context.Context, actor shared.Actor, entityID string, req RejectReturnRequest) (*OrderResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(o *order.Order) error {
		return o.RejectReturn(actor, req.Reason)
	})
}

func (s *Service) privilegedTransition(ctx context.Context, actor shared.Actor, entityID string, apply func(*order.Order) error) (*OrderResponse, error) {
	if !actor.Role.IsPrivileged() {
		return nil, shared.ErrForbidden
	}
	return s.transition(ctx, entityID, apply)
}

func (s *Service) ownerTransition(ctx context.Context, actor shared.Actor, entityID string, apply func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.OwnerUserID) {
		return nil, shared.ErrNotOwner
	}
	return s.applyAndSave(ctx, o, apply)
}

func (s *Service) transition(ctx context.Context, entityID string, apply func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return s.applyAndSave(ctx, o, apply)
}

func (s *Service) applyAndSave(ctx context.Context, o *order.Order, apply func(*order.Order) error) (*OrderResponse, error) {
	if err := apply(o); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, o, o.PendingHistory(), outboxEntries(o)); err != nil {
		return nil, err
	}
	o.ClearPending()
	s.publishEvents(ctx, o)

	response := ToOrderResponse(o)
	return &response, nil
}

func (s *Service) loadAccessible(ctx context.Context, actor shared.Actor, entityID string) (*order.Order, error) {
	o, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.OwnerUserID) {
		return nil, shared.ErrNotOwner
	}
	return o, nil
}

func (s *Service) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range o.GetDomainEvents() {
		// Event delivery is best-effort; the outbox carries the rollup.
		_ = s.eventPublisher.Publish(ctx, event)
	}
	o.ClearDomainEvents()
}

func outboxEntries(o *order.Order) []*stats.OutboxEntry {
	deltas := o.PendingDeltas()
	entries := make([]*stats.OutboxEntry, 0, len(deltas))
	for _, d := range deltas {
		entries = append(entries, stats.NewOutboxEntry(o.EntityID, d))
	}
	return entries
}
