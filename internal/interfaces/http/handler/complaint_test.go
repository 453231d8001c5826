package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	complaintapp "github.com/orderly/backend/internal/application/complaint"
	"github.com/orderly/backend/internal/domain/complaint"
	"github.com/orderly/backend/internal/domain/sequence"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
	"github.com/orderly/backend/internal/interfaces/http/dto"
	"github.com/orderly/backend/internal/interfaces/http/middleware"
)

// MockComplaintRepository implements complaint.Repository for testing
type MockComplaintRepository struct {
	mock.Mock
}

func (m *MockComplaintRepository) Create(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryRecord, entries []*stats.OutboxEntry) error {
	args := m.Called(ctx, c, history, entries)
	return args.Error(0)
}

func (m *MockComplaintRepository) SaveWithLock(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryRecord, entries []*stats.OutboxEntry) error {
	args := m.Called(ctx, c, history, entries)
	return args.Error(0)
}

func (m *MockComplaintRepository) FindByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Complaint), args.Error(1)
}

func (m *MockComplaintRepository) FindByEntityID(ctx context.Context, entityID string) (*complaint.Complaint, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Complaint), args.Error(1)
}

func (m *MockComplaintRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (*shared.Paginated[complaint.Complaint], error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[complaint.Complaint]), args.Error(1)
}

func (m *MockComplaintRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[complaint.Complaint], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[complaint.Complaint]), args.Error(1)
}

func (m *MockComplaintRepository) History(ctx context.Context, complaintID uuid.UUID) ([]*complaint.HistoryRecord, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*complaint.HistoryRecord), args.Error(1)
}

func setupComplaintRouter(t *testing.T, repo complaint.Repository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	service := complaintapp.NewService(repo, sequence.NewMemoryAllocator())
	handler := NewComplaintHandler(service)

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api)
	return engine
}

func openComplaint(t *testing.T, entityID string, ownerID uuid.UUID) *complaint.Complaint {
	t.Helper()
	actor := shared.Actor{UserID: ownerID, Role: shared.ActorRoleCustomer}
	c, err := complaint.NewComplaint(entityID, uuid.New(), ownerID, "", "Broken on arrival", "", actor)
	require.NoError(t, err)
	c.ClearPending()
	return c
}

func TestComplaintHandler_Create(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	repo.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id": uuid.New(),
		"subject":     "Broken on arrival",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "customer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Regexp(t, `^CMP-\d{4}-\d{6}$`, data["entity_id"])
	assert.Equal(t, "OPEN", data["status"])
	repo.AssertExpectations(t)
}

func TestComplaintHandler_CreateRejectsMissingSubject(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id": uuid.New(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "customer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplaintHandler_GetForbiddenForStranger(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	c := openComplaint(t, "CMP-2026-000003", uuid.New())
	repo.On("FindByEntityID", mock.Anything, "CMP-2026-000003").Return(c, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/complaints/CMP-2026-000003", nil)
	authHeaders(req, uuid.New(), "customer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestComplaintHandler_Assign(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	c := openComplaint(t, "CMP-2026-000004", uuid.New())
	repo.On("FindByEntityID", mock.Anything, "CMP-2026-000004").Return(c, nil)
	repo.On("SaveWithLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	assigneeID := uuid.New()
	body, _ := json.Marshal(map[string]interface{}{"assignee_id": assigneeID})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/CMP-2026-000004/assign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "agent")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "IN_PROGRESS", data["status"])
	assert.Equal(t, assigneeID.String(), data["assignee_id"])
}

func TestComplaintHandler_AssignForbiddenForCustomer(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	body, _ := json.Marshal(map[string]interface{}{"assignee_id": uuid.New()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/CMP-2026-000004/assign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "customer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "FindByEntityID", mock.Anything, mock.Anything)
}

func TestComplaintHandler_CloseInvalidState(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	// Only resolved complaints can be closed
	c := openComplaint(t, "CMP-2026-000005", uuid.New())
	repo.On("FindByEntityID", mock.Anything, "CMP-2026-000005").Return(c, nil)

	body, _ := json.Marshal(map[string]string{"note": "done"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/CMP-2026-000005/close", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "agent")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestComplaintHandler_ReopenRequiresReason(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/CMP-2026-000006/reopen", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, uuid.New(), "customer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "FindByEntityID", mock.Anything, mock.Anything)
}

func TestComplaintHandler_List(t *testing.T) {
	repo := new(MockComplaintRepository)
	engine := setupComplaintRouter(t, repo)

	empty := shared.NewPaginated([]complaint.Complaint{}, 0, 1, 20)
	repo.On("List", mock.Anything, mock.Anything).Return(&empty, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/complaints", nil)
	authHeaders(req, uuid.New(), "agent")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(0), resp.Meta.Total)
}
