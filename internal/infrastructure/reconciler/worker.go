package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderly/backend/internal/domain/stats"
)

// Defaults applied when the configuration leaves a knob unset
const (
	defaultBatchSize        = 100
	defaultPollInterval     = 5 * time.Second
	defaultReportInterval   = 1 * time.Minute
	defaultCleanupInterval  = 1 * time.Hour
	defaultCleanupRetention = 7 * 24 * time.Hour
)

// Config holds reconciler worker settings. MaxRetries is the delivery
// retry budget; the worker applies it to every entry it processes,
// regardless of the budget the entry was written with.
type Config struct {
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// Worker drains the delta outbox in the background. Each poll claims a
// batch of pending and retryable entries, delivers their deltas to the
// customer aggregate, and records the outcome. Entries that exhaust their
// retries go DEAD and are left for operators.
type Worker struct {
	repo      stats.OutboxRepository
	deliverer Deliverer
	config    Config
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a reconciler worker
func NewWorker(repo stats.OutboxRepository, deliverer Deliverer, config Config, logger *zap.Logger) *Worker {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = stats.DefaultMaxRetries
	}
	if config.CleanupRetention <= 0 {
		config.CleanupRetention = defaultCleanupRetention
	}
	return &Worker{
		repo:      repo,
		deliverer: deliverer,
		config:    config,
		logger:    logger,
	}
}

// Start starts the background polling
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.pollLoop(ctx)

	if w.config.CleanupEnabled {
		w.wg.Add(1)
		go w.cleanupLoop(ctx)
	}

	w.logger.Info("reconciler started",
		zap.Int("batch_size", w.config.BatchSize),
		zap.Duration("poll_interval", w.config.PollInterval),
	)
	return nil
}

// Stop waits for in-flight deliveries to finish
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	reportTicker := time.NewTicker(defaultReportInterval)
	defer reportTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-reportTicker.C:
			w.reportDepth(ctx)
		}
	}
}

// reportDepth logs the outbox backlog. DEAD entries need an operator, so
// they are logged at warn.
func (w *Worker) reportDepth(ctx context.Context) {
	counts, err := w.repo.CountByStatus(ctx)
	if err != nil {
		w.logger.Error("failed to count outbox entries", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.Int64("pending", counts[stats.OutboxStatusPending]),
		zap.Int64("failed", counts[stats.OutboxStatusFailed]),
		zap.Int64("dead", counts[stats.OutboxStatusDead]),
	}
	if counts[stats.OutboxStatusDead] > 0 {
		w.logger.Warn("outbox has abandoned entries", fields...)
		return
	}
	w.logger.Info("outbox depth", fields...)
}

// processBatch drains one batch of pending entries, then one of retryable
func (w *Worker) processBatch(ctx context.Context) {
	pending, err := w.repo.FindPending(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	if len(pending) > 0 {
		w.processEntries(ctx, pending)
	}

	retryable, err := w.repo.FindRetryable(ctx, time.Now(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	if len(retryable) > 0 {
		w.processEntries(ctx, retryable)
	}
}

func (w *Worker) processEntries(ctx context.Context, entries []*stats.OutboxEntry) {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	// Claim atomically so concurrent workers never double-deliver
	claimed, err := w.repo.MarkProcessing(ctx, ids)
	if err != nil {
		w.logger.Error("failed to claim entries", zap.Error(err))
		return
	}

	for _, entry := range claimed {
		w.processEntry(ctx, entry)
	}
}

func (w *Worker) processEntry(ctx context.Context, entry *stats.OutboxEntry) {
	applied, err := w.deliverer.Deliver(ctx, entry.Delta())
	if err != nil {
		// the configured retry budget wins over the one the entry was
		// written with
		entry.MaxRetries = w.config.MaxRetries
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			w.logger.Warn("delta delivery abandoned",
				zap.String("entry_id", entry.ID.String()),
				zap.String("entity_id", entry.EntityID),
				zap.String("customer_id", entry.CustomerID.String()),
				zap.Int("retry_count", entry.RetryCount),
				zap.String("last_error", entry.LastError),
			)
		} else {
			w.logger.Error("delta delivery failed",
				zap.String("entry_id", entry.ID.String()),
				zap.String("entity_id", entry.EntityID),
				zap.Int("retry_count", entry.RetryCount),
				zap.Error(err),
			)
		}
		if updateErr := w.repo.Update(ctx, entry); updateErr != nil {
			w.logger.Error("failed to update entry", zap.Error(updateErr))
		}
		return
	}

	entry.MarkSent()
	if err := w.repo.Update(ctx, entry); err != nil {
		w.logger.Error("failed to mark entry as sent",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("delta delivered",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entity_id", entry.EntityID),
		zap.Bool("applied", applied),
	)
}

func (w *Worker) cleanupLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-w.config.CleanupRetention)
	deleted, err := w.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to clean up sent entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		w.logger.Info("cleaned up sent outbox entries", zap.Int64("deleted", deleted))
	}
}
