package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/queue"
	"go.uber.org/zap"
)

const (
	// DefaultReconcileLookback bounds how far back unanswered check-ins are retried.
	DefaultReconcileLookback = 24 * time.Hour
	// DefaultReconcileBatch caps jobs enqueued per pass.
	DefaultReconcileBatch = 100
	// reconcileGrace leaves fresh check-ins to their own enqueue.
	reconcileGrace = 2 * time.Minute
)

// BacklogLister finds check-ins whose suggestion generation never completed.
type BacklogLister interface {
	ListWithoutSuggestions(ctx context.Context, since time.Time, limit int) ([]*models.CheckIn, error)
}

// Reconciler re-enqueues generation for check-ins whose job was lost,
// for example when the broker was down at check-in time.
type Reconciler struct {
	backlog  BacklogLister
	jobQueue queue.Enqueuer
	interval time.Duration
	lookback time.Duration
	batch    int
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(backlog BacklogLister, jobQueue queue.Enqueuer, interval time.Duration, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		backlog:  backlog,
		jobQueue: jobQueue,
		interval: interval,
		lookback: DefaultReconcileLookback,
		batch:    DefaultReconcileBatch,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs a pass immediately and then every interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	if _, err := r.Reconcile(ctx); err != nil {
		r.logger.Error("reconcile_failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error("reconcile_failed", zap.Error(err))
			}
		}
	}
}

// Reconcile enqueues one generation job per stranded check-in and returns
// how many were enqueued. Duplicate jobs are harmless: persistence is
// guarded per check-in.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	now := r.now()
	pending, err := r.backlog.ListWithoutSuggestions(ctx, now.Add(-r.lookback), r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list check-ins without suggestions: %w", err)
	}

	enqueued := 0
	for _, c := range pending {
		if c.CreatedAt.After(now.Add(-reconcileGrace)) {
			continue
		}
		job := queue.NewJob(queue.JobTypeSuggestionGeneration, c.UserID, c.ID)
		// Stale jobs are dropped by the consumer.
		notAfter := now.Add(r.interval)
		job.NotAfter = &notAfter
		if err := r.jobQueue.Enqueue(ctx, job); err != nil {
			r.logger.Warn("reconcile_enqueue_failed",
				zap.String("check_in_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		r.logger.Info("reconcile_enqueued",
			zap.Int("count", enqueued),
			zap.Int("pending", len(pending)),
		)
	}
	return enqueued, nil
}
