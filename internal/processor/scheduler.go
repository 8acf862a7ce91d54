package processor

import (
	"context"
	"log/slog"
	"time"

	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/queue"
)

// Scheduler wakes failed items whose retry time has arrived, returning them
// to the ready queue.
type Scheduler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	clock  func() time.Time
}

// NewScheduler builds a retry scheduler.
func NewScheduler(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		clock:  time.Now,
	}
}

// ReleaseDue returns due failed items to the ready queue and reports how
// many were released.
func (s *Scheduler) ReleaseDue(ctx context.Context) (int64, error) {
	released, err := s.store.ReleaseDueRetries(ctx, s.clock().UTC())
	if err != nil {
		return 0, err
	}
	if released > 0 {
		s.logger.Info("released items for retry", logging.Int64("count", released))
	}
	return released, nil
}

// Run releases due retries on the configured interval until the context is
// canceled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.RetryPollInterval()
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
			if _, err := s.ReleaseDue(ctx); err != nil {
				s.logger.Error("retry release failed", logging.Error(err))
			}
		}
	}
}

// SetClock overrides the time source, for tests.
func (s *Scheduler) SetClock(clock func() time.Time) {
	s.clock = clock
}
