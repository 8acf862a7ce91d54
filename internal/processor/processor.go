package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"showrenamer/internal/audit"
	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/parse"
	"showrenamer/internal/queue"
	"showrenamer/internal/renameplan"
	"showrenamer/internal/services"
)

// Manager drains the ready queue: parse, match, plan, apply. Each file ends
// in exactly one terminal outcome recorded on the audit trail; retryable
// failures go back to the queue until the retry budget runs out.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	parser   *parse.Parser
	matcher  *matching.Matcher
	executor *renameplan.Executor
	trail    *audit.Trail
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight map[string]struct{}
	slots    chan struct{}
}

// NewManager builds a processor over the assembled pipeline components.
func NewManager(
	cfg *config.Config,
	store *queue.Store,
	parser *parse.Parser,
	matcher *matching.Matcher,
	executor *renameplan.Executor,
	trail *audit.Trail,
	logger *slog.Logger,
) *Manager {
	workers := cfg.Processing.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		parser:   parser,
		matcher:  matcher,
		executor: executor,
		trail:    trail,
		logger:   logging.NewComponentLogger(logger, "processor"),
		inFlight: make(map[string]struct{}),
		slots:    make(chan struct{}, workers),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("processor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runDispatch(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for in-flight work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runDispatch(ctx context.Context) {
	interval := m.cfg.QueuePollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.dispatchReady(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("failed to fetch ready items", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dispatchReady hands every ready item not already being worked to a worker
// slot. Per-path single flight keeps a file from being processed twice when
// a sweep and a retry release race.
func (m *Manager) dispatchReady(ctx context.Context) error {
	items, err := m.store.ListReady(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		m.mu.Lock()
		if _, busy := m.inFlight[item.Path]; busy {
			m.mu.Unlock()
			continue
		}
		m.inFlight[item.Path] = struct{}{}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			m.release(item.Path)
			return ctx.Err()
		case m.slots <- struct{}{}:
		}

		m.wg.Add(1)
		go func(item *queue.Item) {
			defer m.wg.Done()
			defer func() { <-m.slots }()
			defer m.release(item.Path)
			m.ProcessItem(ctx, item)
		}(item)
	}
	return nil
}

func (m *Manager) release(path string) {
	m.mu.Lock()
	delete(m.inFlight, path)
	m.mu.Unlock()
}

// ProcessItem runs one tracked file through the full pipeline.
func (m *Manager) ProcessItem(ctx context.Context, item *queue.Item) {
	logger := m.logger.With(logging.String(logging.FieldPath, item.Path))

	if _, err := os.Stat(item.Path); err != nil {
		if os.IsNotExist(err) {
			logger.Info("file vanished before processing")
			if removeErr := m.store.Remove(ctx, item.ID); removeErr != nil {
				logger.Error("failed to drop vanished file", logging.Error(removeErr))
			}
			return
		}
		m.handleFailure(ctx, logger, item, services.Wrap(services.ErrExecution,
			"processor", "stat source", "failed to stat "+item.Path, err))
		return
	}

	candidate, err := m.parser.Parse(item.Path)
	if err != nil {
		m.handleFailure(ctx, logger, item, err)
		return
	}
	if candidateJSON, marshalErr := json.Marshal(candidate); marshalErr == nil {
		item.CandidateJSON = string(candidateJSON)
	}

	result, err := m.matcher.Match(ctx, candidate)
	if err != nil {
		m.handleFailure(ctx, logger, item, err)
		return
	}

	item.Status = queue.StatusMatched
	if matchJSON, marshalErr := json.Marshal(result); marshalErr == nil {
		item.MatchJSON = string(matchJSON)
	}
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist match", logging.Error(err))
		return
	}

	mode := m.cfg.OperationMode()
	plan, err := m.executor.Build(item.Path, result, mode)
	if err != nil {
		m.handleFailure(ctx, logger, item, err)
		return
	}
	if err := m.executor.Apply(plan, mode); err != nil {
		m.handleFailure(ctx, logger, item, err)
		return
	}

	action := audit.ActionApplied
	if mode == config.ModeDryRun {
		action = audit.ActionDryRun
	}
	m.finish(ctx, logger, item, audit.Record{
		Action:      action,
		Source:      plan.Source,
		Destination: plan.Destination,
		Series:      result.SeriesName,
		Season:      result.Season,
		Episodes:    result.Episodes,
		Confidence:  result.Confidence,
	})
}

// handleFailure routes a pipeline error to either a scheduled retry or a
// terminal failure record, honoring the retry budget.
func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, item *queue.Item, cause error) {
	kind := services.FailureKind(cause)

	if services.Retryable(cause) {
		attempts := item.Attempts + 1
		if attempts <= m.cfg.Processing.RetryBudget {
			item.Attempts = attempts
			item.FailureKind = kind
			item.LastError = cause.Error()
			wakeAt := time.Now().UTC().Add(m.cfg.RetryInterval())
			if err := m.store.ScheduleRetry(ctx, item, wakeAt); err != nil {
				logger.Error("failed to schedule retry", logging.Error(err))
				return
			}
			logger.Warn("processing failed, retry scheduled",
				logging.String("failure_kind", kind),
				logging.Int("attempt", attempts),
				logging.Error(cause))
			return
		}
		logger.Warn("retry budget exhausted",
			logging.String("failure_kind", kind),
			logging.Int("attempts", attempts))
	}

	m.finish(ctx, logger, item, audit.Record{
		Action:      audit.ActionFailed,
		Source:      item.Path,
		FailureKind: kind,
		Reason:      cause.Error(),
	})
}

// finish records the terminal outcome and drops the queue row. The audit
// append happens first so a crash between the two leaves a duplicate queue
// row rather than a missing audit record.
func (m *Manager) finish(ctx context.Context, logger *slog.Logger, item *queue.Item, record audit.Record) {
	if _, err := m.trail.Append(record); err != nil {
		logger.Error("failed to append audit record", logging.Error(err))
		return
	}
	if err := m.store.Remove(ctx, item.ID); err != nil {
		logger.Error("failed to remove finished item", logging.Error(err))
		return
	}

	switch record.Action {
	case audit.ActionFailed:
		logger.Info("file failed terminally",
			logging.String("failure_kind", record.FailureKind))
	default:
		logger.Info("file processed",
			logging.String(logging.FieldSeries, record.Series),
			logging.String("destination", record.Destination))
	}
}
