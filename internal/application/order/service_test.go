package order

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orderly/backend/internal/domain/order"
	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// MockRepository is a mock implementation of order.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *order.Order, history []*order.HistoryRecord, entries []*stats.OutboxEntry) error {
	args := m.Called(ctx, o, history, entries)
	return args.Error(0)
}

func (m *MockRepository) SaveWithLock(ctx context.Context, o *order.Order, history []*order.HistoryRecord, entries []*stats.OutboxEntry) error {
	args := m.Called(ctx, o, history, entries)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockRepository) FindByEntityID(ctx context.Context, entityID string) (*order.Order, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[order.Order], error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[order.Order]), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[order.Order], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[order.Order]), args.Error(1)
}

func (m *MockRepository) History(ctx context.Context, orderID uuid.UUID) ([]*order.HistoryRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.HistoryRecord), args.Error(1)
}

// MockAllocator is a mock implementation of sequence.Allocator
type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Next(ctx context.Context, kind sequence.Kind, year int) (string, error) {
	args := m.Called(ctx, kind, year)
	return args.String(0), args.Error(1)
}

// Test helpers
func customerActor() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Role: shared.ActorRoleCustomer}
}

func agentActor() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Role: shared.ActorRoleAgent}
}

func storedOrder(t *testing.T, owner uuid.UUID) *order.Order {
	actor := shared.Actor{UserID: owner, Role: shared.ActorRoleCustomer}
	o, err := order.NewOrder("ORD-2026-000007", uuid.New(), owner, decimal.NewFromFloat(50), actor)
	require.NoError(t, err)
	o.ClearPending()
	o.ClearDomainEvents()
	return o
}

// ============================================
// Create Tests
// ============================================

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	alloc := new(MockAllocator)
	service := NewService(repo, alloc)
	actor := customerActor()

	alloc.On("Next", mock.Anything, sequence.KindOrder, mock.AnythingOfType("int")).
		Return("ORD-2026-000123", nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order"),
		mock.AnythingOfType("[]*order.HistoryRecord"), mock.AnythingOfType("[]*stats.OutboxEntry")).
		Run(func(args mock.Arguments) {
			history := args.Get(2).([]*order.HistoryRecord)
			entries := args.Get(3).([]*stats.OutboxEntry)
			assert.Len(t, history, 1)
			require.Len(t, entries, 1)
			assert.Equal(t, int64(1), entries[0].OrderCountDelta)
			assert.Equal(t, history[0].ID, entries[0].DedupKey)
		}).
		Return(nil)

	resp, err := service.Create(context.Background(), actor, CreateOrderRequest{
		CustomerID:    uuid.New(),
		MonetaryValue: decimal.NewFromFloat(99.99),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-000123", resp.EntityID)
	assert.Equal(t, order.StatusPlaced, resp.Status)
	assert.Equal(t, actor.UserID, resp.OwnerUserID)

	repo.AssertExpectations(t)
	alloc.AssertExpectations(t)
}

func TestService_Create_AllocationFailureAborts(t *testing.T) {
	repo := new(MockRepository)
	alloc := new(MockAllocator)
	service := NewService(repo, alloc)

	alloc.On("Next", mock.Anything, sequence.KindOrder, mock.AnythingOfType("int")).
		Return("", shared.ErrStorageUnavailable)

	_, err := service.Create(context.Background(), customerActor(), CreateOrderRequest{
		CustomerID:    uuid.New(),
		MonetaryValue: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)

	// nothing was persisted
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Create_OnBehalfRequiresPrivilege(t *testing.T) {
	repo := new(MockRepository)
	alloc := new(MockAllocator)
	service := NewService(repo, alloc)
	other := uuid.New()

	alloc.On("Next", mock.Anything, sequence.KindOrder, mock.AnythingOfType("int")).
		Return("ORD-2026-000124", nil)

	_, err := service.Create(context.Background(), customerActor(), CreateOrderRequest{
		CustomerID:    uuid.New(),
		MonetaryValue: decimal.NewFromInt(10),
		OwnerUserID:   &other,
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

// ============================================
// Transition Tests
// ============================================

func TestService_Cancel_ByOwner(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	owner := uuid.New()
	o := storedOrder(t, owner)

	repo.On("FindByEntityID", mock.Anything, o.EntityID).Return(o, nil)
	repo.On("SaveWithLock", mock.Anything, o,
		mock.AnythingOfType("[]*order.HistoryRecord"), mock.AnythingOfType("[]*stats.OutboxEntry")).
		Run(func(args mock.Arguments) {
			entries := args.Get(3).([]*stats.OutboxEntry)
			require.Len(t, entries, 1)
			assert.Equal(t, int64(-1), entries[0].OrderCountDelta)
		}).
		Return(nil)

	actor := shared.Actor{UserID: owner, Role: shared.ActorRoleCustomer}
	resp, err := service.Cancel(context.Background(), actor, o.EntityID, CancelOrderRequest{Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, resp.Status)
	repo.AssertExpectations(t)
}

func TestService_Cancel_ByStrangerRejected(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	o := storedOrder(t, uuid.New())

	repo.On("FindByEntityID", mock.Anything, o.EntityID).Return(o, nil)

	_, err := service.Cancel(context.Background(), customerActor(), o.EntityID, CancelOrderRequest{})
	assert.ErrorIs(t, err, shared.ErrNotOwner)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Ship_RequiresPrivilege(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))

	_, err := service.Ship(context.Background(), customerActor(), "ORD-2026-000007")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	repo.AssertNotCalled(t, "FindByEntityID", mock.Anything, mock.Anything)
}

func TestService_Ship_IllegalTransitionNotSaved(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	o := storedOrder(t, uuid.New())

	repo.On("FindByEntityID", mock.Anything, o.EntityID).Return(o, nil)

	_, err := service.Ship(context.Background(), agentActor(), o.EntityID)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Deliver_ConflictPropagates(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	owner := uuid.New()
	o := storedOrder(t, owner)
	agent := agentActor()
	require.NoError(t, o.StartProcessing(agent))
	require.NoError(t, o.Ship(agent))
	o.ClearPending()

	repo.On("FindByEntityID", mock.Anything, o.EntityID).Return(o, nil)
	repo.On("SaveWithLock", mock.Anything, o, mock.Anything, mock.Anything).
		Return(shared.ErrConcurrencyConflict)

	_, err := service.Deliver(context.Background(), agent, o.EntityID)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestService_GetByEntityID_OwnerOnly(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	o := storedOrder(t, uuid.New())

	repo.On("FindByEntityID", mock.Anything, o.EntityID).Return(o, nil)

	// stranger is rejected
	_, err := service.GetByEntityID(context.Background(), customerActor(), o.EntityID)
	assert.ErrorIs(t, err, shared.ErrNotOwner)

	// agent may read anything
	resp, err := service.GetByEntityID(context.Background(), agentActor(), o.EntityID)
	require.NoError(t, err)
	assert.Equal(t, o.EntityID, resp.EntityID)
}

func TestService_GetByEntityID_NotFound(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))

	repo.On("FindByEntityID", mock.Anything, "ORD-2026-999999").Return(nil, shared.ErrNotFound)

	_, err := service.GetByEntityID(context.Background(), agentActor(), "ORD-2026-999999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_List_UnprivilegedScopedToOwner(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockAllocator))
	actor := customerActor()

	empty := shared.NewPaginated([]order.Order{}, 0, 1, 20)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		owner, ok := f.Filters["owner_user_id"]
		return ok && owner == actor.UserID
	})).Return(&empty, nil)

	_, total, err := service.List(context.Background(), actor, OrderListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	repo.AssertExpectations(t)
}

func TestService_Create_RepositoryErrorPropagates(t *testing.T) {
	repo := new(MockRepository)
	alloc := new(MockAllocator)
	service := NewService(repo, alloc)

	alloc.On("Next", mock.Anything, sequence.KindOrder, mock.AnythingOfType("int")).
		Return("ORD-2026-000200", nil)
	dbErr := errors.New("connection reset")
	repo.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(dbErr)

	_, err := service.Create(context.Background(), customerActor(), CreateOrderRequest{
		CustomerID:    uuid.New(),
		MonetaryValue: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, dbErr)
}
