package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/processor"
	"showrenamer/internal/queue"
	"showrenamer/internal/stability"
	"showrenamer/internal/watchfs"
)

// Daemon composes the watcher, stability tracker, processor, and retry
// scheduler into a single lifecycle, with flock-based locking to prevent
// multiple instances sharing one queue database.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	watcher   *watchfs.Watcher
	tracker   *stability.Tracker
	manager   *processor.Manager
	scheduler *processor.Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	tracker *stability.Tracker,
	manager *processor.Manager,
	scheduler *processor.Scheduler,
) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || tracker == nil || manager == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, store, logger, tracker, manager, and scheduler")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "showrenamerd.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		tracker:   tracker,
		manager:   manager,
		scheduler: scheduler,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	watcher, err := watchfs.New(cfg, logger, d.observe)
	if err != nil {
		return nil, err
	}
	d.watcher = watcher
	return d, nil
}

func (d *Daemon) observe(ctx context.Context, event watchfs.Event) error {
	_, err := d.tracker.Observe(ctx, event.Path, event.Size, event.ModTime)
	return err
}

// Start acquires the daemon lock, recovers interrupted work, sweeps files
// already on disk, and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another showrenamer daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	// Files that were mid-pipeline when the last run died go back to stable
	// so they are re-processed from a clean state.
	reset, err := d.store.ResetInFlight(runCtx)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("reset in-flight items: %w", err)
	}
	if reset > 0 {
		d.logger.Info("recovered interrupted items", logging.Int64("count", reset))
	}

	if err := d.watcher.SweepExisting(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("sweep existing files: %w", err)
	}

	if err := d.manager.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start processor: %w", err)
	}

	d.cancel = cancel
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		d.runBackground(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("mode", string(d.cfg.OperationMode())))
	return nil
}

// runBackground hosts the watcher event loop, the stability sweep, and the
// retry scheduler until the run context is canceled.
func (d *Daemon) runBackground(ctx context.Context) {
	trackerDone := make(chan struct{})
	go func() {
		defer close(trackerDone)
		d.tracker.Run(ctx, d.cfg.StabilityPollInterval())
	}()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		d.scheduler.Run(ctx)
	}()

	if err := d.watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("watcher exited", logging.Error(err))
	}

	<-trackerDone
	<-schedulerDone
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	d.manager.Stop()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
