package complaint

import (
	"context"
	"time"

	"github.com/orderly/backend/internal/domain/complaint"
	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// Service handles complaint lifecycle operations
type Service struct {
	repo           complaint.Repository
	allocator      sequence.Allocator
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewService creates a new complaint Service
func NewService(repo complaint.Repository, allocator sequence.Allocator) *Service {
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

// Create opens a new complaint. The identifier is allocated before anything
// is persisted; an allocation failure aborts the whole request.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateComplaintRequest) (*ComplaintResponse, error) {
	entityID, err := s.allocator.Next(ctx, sequence.KindComplaint, s.now().Year())
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

	c, err := complaint.NewComplaint(entityID, req.CustomerID, ownerID, req.OrderEntityID, req.Subject, req.Description, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c, c.PendingHistory(), outboxEntries(c)); err != nil {
		return nil, err
	}
	c.ClearPending()
	s.publishEvents(ctx, c)

	response := ToComplaintResponse(c)
	return &response, nil
}

// GetByEntityID retrieves a complaint by its public identifier
func (s *Service) GetByEntityID(ctx context.Context, actor shared.Actor, entityID string) (*ComplaintResponse, error) {
	c, err := s.loadAccessible(ctx, actor, entityID)
	if err != nil {
		return nil, err
	}
	response := ToComplaintResponse(c)
	return &response, nil
}

// List retrieves complaints with filtering and pagination. Unprivileged
// callers only ever see their own complaints.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ComplaintListFilter) ([]ComplaintResponse, int64, error) {
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
	if filter.AssigneeID != nil {
		domainFilter.Filters["assignee_id"] = *filter.AssigneeID
	}

	if !actor.Role.IsPrivileged() {
		domainFilter.Filters["owner_user_id"] = actor.UserID
	}

	var result *shared.Paginated[complaint.Complaint]
	var err error
	if filter.CustomerID != nil {
		result, err = s.repo.FindByCustomer(ctx, *filter.CustomerID, domainFilter)
	} else {
		result, err = s.repo.List(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}
	return ToComplaintResponses(result.Items), result.Total, nil
}

// History retrieves the full transition log of a complaint, oldest first
func (s *Service) History(ctx context.Context, actor shared.Actor, entityID string) ([]HistoryRecordResponse, error) {
	c, err := s.loadAccessible(ctx, actor, entityID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.History(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return ToHistoryResponses(records), nil
}

// Assign hands a complaint to an agent. Assigning an open complaint also
// moves it to in progress.
func (s *Service) Assign(ctx context.Context, actor shared.Actor, entityID string, req AssignComplaintRequest) (*ComplaintResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(c *complaint.Complaint) error {
		return c.Assign(req.AssigneeID, actor)
	})
}

// Resolve marks a complaint resolved
func (s *Service) Resolve(ctx context.Context, actor shared.Actor, entityID string, req ResolveComplaintRequest) (*ComplaintResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(c *complaint.Complaint) error {
		return c.Resolve(actor, req.Note)
	})
}

// Reopen puts a resolved complaint back to open. The owner may reopen their
// own complaint; privileged roles may reopen any.
func (s *Service) Reopen(ctx context.Context, actor shared.Actor, entityID string, req ReopenComplaintRequest) (*ComplaintResponse, error) {
	return s.ownerTransition(ctx, actor, entityID, func(c *complaint.Complaint) error {
		return c.Reopen(actor, req.Reason)
	})
}

// Close finalizes a resolved complaint
func (s *Service) Close(ctx context.Context, actor shared.Actor, entityID string, req CloseComplaintRequest) (*ComplaintResponse, error) {
	return s.privilegedTransition(ctx, actor, entityID, func(c *complaint.Complaint) error {
		return c.Close(actor, req.Note)
	})
}

func (s *Service) privilegedTransition(ctx context.Context, actor shared.Actor, entityID string, apply func(*complaint.Complaint) error) (*ComplaintResponse, error) {
	if !actor.Role.IsPrivileged() {
		return nil, shared.ErrForbidden
	}
	c, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return s.applyAndSave(ctx, c, apply)
}

func (s *Service) ownerTransition(ctx context.Context, actor shared.Actor, entityID string, apply func(*complaint.Complaint) error) (*ComplaintResponse, error) {
	c, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(c.OwnerUserID) {
		return nil, shared.ErrNotOwner
	}
	return s.applyAndSave(ctx, c, apply)
}

func (s *Service) applyAndSave(ctx context.Context, c *complaint.Complaint, apply func(*complaint.Complaint) error) (*ComplaintResponse, error) {
	if err := apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, c, c.PendingHistory(), outboxEntries(c)); err != nil {
		return nil, err
	}
	c.ClearPending()
	s.publishEvents(ctx, c)

	response := ToComplaintResponse(c)
	return &response, nil
}

func (s *Service) loadAccessible(ctx context.Context, actor shared.Actor, entityID string) (*complaint.Complaint, error) {
	c, err := s.repo.FindByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(c.OwnerUserID) {
		return nil, shared.ErrNotOwner
	}
	return c, nil
}

func (s *Service) publishEvents(ctx context.Context, c *complaint.Complaint) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range c.GetDomainEvents() {
		// Event delivery is best-effort; the outbox carries the rollup.
		_ = s.eventPublisher.Publish(ctx, event)
	}
	c.ClearDomainEvents()
}

func outboxEntries(c *complaint.Complaint) []*stats.OutboxEntry {
	deltas := c.PendingDeltas()
	entries := make([]*stats.OutboxEntry, 0, len(deltas))
	for _, d := range deltas {
		entries = append(entries, stats.NewOutboxEntry(c.EntityID, d))
	}
	return entries
}
