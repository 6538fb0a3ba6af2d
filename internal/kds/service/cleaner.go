package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CompletedRoutingDeleter interface {
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner periodically removes routings that were completed longer ago
// than the retention window. OnDeleted runs after a pass that removed rows.
type Cleaner struct {
	repo      CompletedRoutingDeleter
	retention time.Duration
	interval  time.Duration
	onDeleted func(n int64)
	now       func() time.Time
	logger    *zap.Logger
}

func NewCleaner(repo CompletedRoutingDeleter, retention, interval time.Duration, onDeleted func(n int64), logger *zap.Logger) *Cleaner {
	return &Cleaner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		onDeleted: onDeleted,
		now:       time.Now,
		logger:    logger,
	}
}

// Clean runs one pass.
func (c *Cleaner) Clean(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().Add(-c.retention)

	n, err := c.repo.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		c.logger.Info("removed completed routings", zap.Int64("count", n), zap.Time("cutoff", cutoff))
		if c.onDeleted != nil {
			c.onDeleted(n)
		}
	}
	return n, nil
}

// Run cleans once per interval until ctx is done. A non-positive interval
// disables cleanup.
func (c *Cleaner) Run(ctx context.Context) error {
	if c.interval <= 0 || c.retention <= 0 {
		c.logger.Info("routing cleanup disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Clean(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("routing cleanup failed", zap.Error(err))
			}
		}
	}
}
