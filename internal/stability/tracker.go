package stability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/queue"
)

// Tracker decides when a watched file has settled. A file is stable once its
// size and modification time have not changed for the configured quiet
// period; any observed change restarts the clock.
type Tracker struct {
	store  *queue.Store
	period time.Duration
	logger *slog.Logger
	clock  func() time.Time
}

// New builds a tracker over the queue store.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		period: cfg.StabilityPeriod(),
		logger: logging.NewComponentLogger(logger, "stability"),
		clock:  time.Now,
	}
}

// Observe records the current size and mtime for path. New files enter the
// queue; changed files get their quiet-period clock reset.
func (t *Tracker) Observe(ctx context.Context, path string, size int64, mtime time.Time) (*queue.Item, error) {
	item, err := t.store.Observe(ctx, path, size, mtime, t.clock())
	if err != nil {
		return nil, err
	}
	t.logger.Debug("observed file",
		logging.String(logging.FieldPath, path),
		logging.Int64("size", size))
	return item, nil
}

// Sweep re-stats every still-settling file and promotes the ones whose quiet
// period has elapsed. Files that vanished from disk are dropped from the
// queue. It returns the number of files promoted to stable.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	items, err := t.store.ListByStatus(ctx, queue.StatusNew)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, item := range items {
		info, err := os.Stat(item.Path)
		if err != nil {
			if os.IsNotExist(err) {
				t.logger.Info("file removed before stabilizing",
					logging.String(logging.FieldPath, item.Path))
				if err := t.store.Remove(ctx, item.ID); err != nil {
					return promoted, err
				}
				continue
			}
			t.logger.Warn("stat failed during stability sweep",
				logging.String(logging.FieldPath, item.Path),
				logging.Error(err))
			continue
		}

		now := t.clock()
		updated, err := t.store.Observe(ctx, item.Path, info.Size(), info.ModTime(), now)
		if err != nil {
			return promoted, err
		}
		if updated.Status != queue.StatusNew {
			continue
		}
		if now.Sub(updated.LastChange) < t.period {
			continue
		}

		if err := t.store.MarkStable(ctx, updated.ID); err != nil {
			return promoted, err
		}
		promoted++
		t.logger.Info("file stable",
			logging.String(logging.FieldPath, item.Path),
			logging.Duration("settle_time", now.Sub(updated.FirstSeen)))
	}
	return promoted, nil
}

// Run sweeps on the configured interval until the context is canceled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Sweep(ctx); err != nil {
				t.logger.Error("stability sweep failed", logging.Error(err))
			}
		}
	}
}

// SetClock overrides the time source, for tests.
func (t *Tracker) SetClock(clock func() time.Time) {
	t.clock = clock
}
