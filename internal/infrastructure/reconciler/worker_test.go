package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderly/backend/internal/domain/stats"
)

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) Save(ctx context.Context, entries ...*stats.OutboxEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*stats.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stats.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*stats.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stats.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*stats.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stats.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) Update(ctx context.Context, entry *stats.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxRepository) CountByStatus(ctx context.Context) (map[stats.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[stats.OutboxStatus]int64), args.Error(1)
}

type stubDeliverer struct {
	applied bool
	err     error
	calls   int
}

func (d *stubDeliverer) Deliver(ctx context.Context, delta stats.Delta) (bool, error) {
	d.calls++
	return d.applied, d.err
}

func testEntry() *stats.OutboxEntry {
	return stats.NewOutboxEntry("ORD-2026-000001", stats.Delta{
		CustomerID:      uuid.New(),
		OrderCountDelta: 1,
		OrderValueDelta: decimal.NewFromInt(100),
		DedupKey:        uuid.New(),
	})
}

func TestWorker_ProcessBatch_DeliversAndMarksSent(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{applied: true}
	worker := NewWorker(repo, deliverer, Config{}, zap.NewNop())

	entry := testEntry()
	repo.On("FindPending", mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{}, nil)

	worker.processBatch(context.Background())

	assert.Equal(t, 1, deliverer.calls)
	assert.Equal(t, stats.OutboxStatusSent, entry.Status)
	require.NotNil(t, entry.ProcessedAt)
	repo.AssertExpectations(t)
}

func TestWorker_ProcessBatch_AlreadyAppliedStillSent(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{applied: false}
	worker := NewWorker(repo, deliverer, Config{}, zap.NewNop())

	entry := testEntry()
	repo.On("FindPending", mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{}, nil)

	worker.processBatch(context.Background())

	assert.Equal(t, stats.OutboxStatusSent, entry.Status)
}

func TestWorker_ProcessBatch_FailureSchedulesRetry(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{err: errors.New("connection refused")}
	worker := NewWorker(repo, deliverer, Config{}, zap.NewNop())

	entry := testEntry()
	repo.On("FindPending", mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{}, nil)

	worker.processBatch(context.Background())

	assert.Equal(t, stats.OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Equal(t, "connection refused", entry.LastError)
	require.NotNil(t, entry.NextRetryAt)
}

func TestWorker_ProcessBatch_ExhaustedRetriesGoDead(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{err: errors.New("still broken")}
	worker := NewWorker(repo, deliverer, Config{}, zap.NewNop())

	entry := testEntry()
	entry.RetryCount = entry.MaxRetries - 1
	entry.Status = stats.OutboxStatusFailed

	repo.On("FindPending", mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{}, nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)

	worker.processBatch(context.Background())

	assert.True(t, entry.IsDead())
}

func TestWorker_ProcessBatch_ConfiguredRetryBudgetWins(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{err: errors.New("still broken")}
	worker := NewWorker(repo, deliverer, Config{MaxRetries: 2}, zap.NewNop())

	// written with the default budget of 5, delivered under a budget of 2
	entry := testEntry()
	entry.RetryCount = 1
	entry.Status = stats.OutboxStatusFailed

	repo.On("FindPending", mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{}, nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, defaultBatchSize).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*stats.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)

	worker.processBatch(context.Background())

	assert.True(t, entry.IsDead())
}

func TestWorker_ReportDepth(t *testing.T) {
	repo := new(mockOutboxRepository)
	worker := NewWorker(repo, &stubDeliverer{}, Config{}, zap.NewNop())

	repo.On("CountByStatus", mock.Anything).Return(map[stats.OutboxStatus]int64{
		stats.OutboxStatusPending: 4,
		stats.OutboxStatusDead:    1,
	}, nil)

	worker.reportDepth(context.Background())

	repo.AssertExpectations(t)
}

func TestWorker_ProcessBatch_FindPendingErrorStopsPoll(t *testing.T) {
	repo := new(mockOutboxRepository)
	deliverer := &stubDeliverer{}
	worker := NewWorker(repo, deliverer, Config{}, zap.NewNop())

	repo.On("FindPending", mock.Anything, defaultBatchSize).Return(nil, errors.New("db down"))

	worker.processBatch(context.Background())

	assert.Equal(t, 0, deliverer.calls)
	repo.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything)
}

func TestWorker_Cleanup(t *testing.T) {
	repo := new(mockOutboxRepository)
	worker := NewWorker(repo, &stubDeliverer{}, Config{CleanupRetention: time.Hour}, zap.NewNop())

	repo.On("DeleteOlderThan", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	worker.cleanup(context.Background())

	repo.AssertExpectations(t)
}

func TestWorker_StartStop(t *testing.T) {
	repo := new(mockOutboxRepository)
	worker := NewWorker(repo, &stubDeliverer{}, Config{PollInterval: time.Minute}, zap.NewNop())

	require.NoError(t, worker.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(ctx))
}
