package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// sweepTimeout bounds one purge pass so a stuck broker cannot stall the loop.
const sweepTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered generation jobs once they are older
// than the retention period. Operators inspect the DLQ within that window.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger

	purged atomic.Int64
}

func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps once immediately, then every interval, until ctx is done.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if gc.purger == nil || gc.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if err := gc.sweep(ctx); err != nil && ctx.Err() == nil {
			gc.logger.Error("dlq_gc_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Purged is the number of jobs removed since the collector was created.
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

func (gc *GarbageCollector) sweep(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("purge dead-lettered jobs: %w", err)
	}
	if n == 0 {
		return nil
	}
	total := gc.purged.Add(int64(n))
	gc.logger.Info("dlq_gc_purged",
		zap.Int("count", n),
		zap.Int64("total", total),
		zap.Duration("retention", gc.retention),
	)
	return nil
}
