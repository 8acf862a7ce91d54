package processor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"showrenamer/internal/audit"
	"showrenamer/internal/config"
	"showrenamer/internal/library"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/metadata/tvdb"
	"showrenamer/internal/parse"
	"showrenamer/internal/processor"
	"showrenamer/internal/queue"
	"showrenamer/internal/renameplan"
	"showrenamer/internal/showcache"
	"showrenamer/internal/testsupport"
)

type fakeLookup struct {
	series    map[string][]tvdb.Series
	episodes  map[int64][]tvdb.Episode
	searchErr error
}

func (f *fakeLookup) SearchSeries(_ context.Context, query string) ([]tvdb.Series, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	results, ok := f.series[query]
	if !ok || len(results) == 0 {
		return nil, tvdb.ErrNotFound
	}
	return results, nil
}

func (f *fakeLookup) SeriesEpisodes(_ context.Context, seriesID int64) ([]tvdb.Episode, error) {
	episodes, ok := f.episodes[seriesID]
	if !ok {
		return nil, tvdb.ErrNotFound
	}
	return episodes, nil
}

func wireLookup() *fakeLookup {
	return &fakeLookup{
		series: map[string][]tvdb.Series{
			"the wire": {{ID: 79126, Name: "The Wire", Year: "2002"}},
		},
		episodes: map[int64][]tvdb.Episode{
			79126: {
				{ID: 1, Name: "The Target", SeasonNumber: 1, EpisodeNumber: 1},
				{ID: 2, Name: "The Detail", SeasonNumber: 1, EpisodeNumber: 2},
			},
		},
	}
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	manager *processor.Manager
	trail   *audit.Trail
}

func newHarness(t *testing.T, lookup tvdb.Lookuper, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	parser, err := parse.New(cfg.Parsing)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	cache := showcache.NewCache(cfg.Paths.CachePath, cfg.CacheTTL(), logging.NewNop())
	matcher := matching.New(cfg, cache, lookup, logging.NewNop())
	executor := renameplan.New(cfg, library.New(cfg), logging.NewNop())
	trail := audit.New(cfg.AuditLogPath())

	return &harness{
		cfg:     cfg,
		store:   store,
		manager: processor.NewManager(cfg, store, parser, matcher, executor, trail, logging.NewNop()),
		trail:   trail,
	}
}

// stableItem writes the file, observes it, and promotes it to stable.
func (h *harness) stableItem(t *testing.T, name string) *queue.Item {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(h.cfg.Paths.WatchDirs[0], name)
	testsupport.WriteFile(t, path, []byte("episode bytes"))

	item := testsupport.ObserveFile(t, h.store, path, 13, time.Now())
	if err := h.store.MarkStable(ctx, item.ID); err != nil {
		t.Fatalf("mark stable: %v", err)
	}
	stable, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return stable
}

func (h *harness) mustRecent(t *testing.T, limit int) []audit.Record {
	t.Helper()
	records, err := h.trail.Recent(limit)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	return records
}

func TestProcessItemAppliesRename(t *testing.T) {
	h := newHarness(t, wireLookup())
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")

	h.manager.ProcessItem(ctx, item)

	want := filepath.Join(h.cfg.Paths.ShowsDirs[0], "The Wire", "Season 01",
		"The Wire - S01E02 - The Detail.mkv")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed file missing at %s: %v", want, err)
	}
	if _, err := os.Stat(item.Path); !os.IsNotExist(err) {
		t.Error("source still present")
	}

	if remaining, err := h.store.GetByID(ctx, item.ID); err != nil || remaining != nil {
		t.Errorf("queue row still present after terminal success: %+v, %v", remaining, err)
	}

	records := h.mustRecent(t, 1)
	if len(records) != 1 || records[0].Action != audit.ActionApplied {
		t.Fatalf("audit records = %+v", records)
	}
	if records[0].Destination != want || records[0].Series != "The Wire" {
		t.Errorf("audit record = %+v", records[0])
	}
}

func TestProcessItemDryRunLeavesFile(t *testing.T) {
	h := newHarness(t, wireLookup(), testsupport.WithMode(config.ModeDryRun))
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")

	h.manager.ProcessItem(ctx, item)

	if _, err := os.Stat(item.Path); err != nil {
		t.Error("dry run moved the source")
	}
	records := h.mustRecent(t, 1)
	if len(records) != 1 || records[0].Action != audit.ActionDryRun {
		t.Fatalf("audit records = %+v", records)
	}
}

func TestProcessItemUnparsableIsTerminal(t *testing.T) {
	h := newHarness(t, wireLookup())
	ctx := context.Background()
	item := h.stableItem(t, "home_video.mkv")

	h.manager.ProcessItem(ctx, item)

	if remaining, _ := h.store.GetByID(ctx, item.ID); remaining != nil {
		t.Errorf("unparsable file still queued: %+v", remaining)
	}
	records := h.mustRecent(t, 1)
	if len(records) != 1 || records[0].Action != audit.ActionFailed {
		t.Fatalf("audit records = %+v", records)
	}
	if records[0].FailureKind != "unparsable" {
		t.Errorf("failure kind = %q, want unparsable", records[0].FailureKind)
	}
	if _, err := os.Stat(item.Path); err != nil {
		t.Error("unparsable source was moved or deleted")
	}
}

func TestProcessItemLookupOutageRetriesOnce(t *testing.T) {
	lookup := wireLookup()
	lookup.searchErr = tvdb.ErrUnavailable
	h := newHarness(t, lookup, testsupport.WithRetry(3600, 1))
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")

	// First failure schedules the single retry.
	h.manager.ProcessItem(ctx, item)

	queued, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if queued == nil || queued.Status != queue.StatusFailed {
		t.Fatalf("item after first failure = %+v, want failed with retry scheduled", queued)
	}
	if queued.Attempts != 1 || queued.NextRetryAt == nil {
		t.Fatalf("retry not scheduled: attempts=%d next=%v", queued.Attempts, queued.NextRetryAt)
	}
	if len(h.mustRecent(t, 10)) != 0 {
		t.Error("retryable failure wrote a terminal audit record")
	}

	// Release the retry and fail again; the budget of one is now spent.
	scheduler := processor.NewScheduler(h.store, h.cfg, logging.NewNop())
	scheduler.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	released, err := scheduler.ReleaseDue(ctx)
	if err != nil {
		t.Fatalf("release due: %v", err)
	}
	if released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}

	retrying, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	h.manager.ProcessItem(ctx, retrying)

	if remaining, _ := h.store.GetByID(ctx, item.ID); remaining != nil {
		t.Errorf("item still queued after budget exhausted: %+v", remaining)
	}
	records := h.mustRecent(t, 10)
	if len(records) != 1 || records[0].Action != audit.ActionFailed {
		t.Fatalf("audit records = %+v", records)
	}
	if records[0].FailureKind != "lookup_error" {
		t.Errorf("failure kind = %q, want lookup_error", records[0].FailureKind)
	}
}

func TestProcessItemCollisionIsTerminal(t *testing.T) {
	h := newHarness(t, wireLookup())
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")

	occupied := filepath.Join(h.cfg.Paths.ShowsDirs[0], "The Wire", "Season 01",
		"The Wire - S01E02 - The Detail.mkv")
	testsupport.WriteFile(t, occupied, []byte("already here"))

	h.manager.ProcessItem(ctx, item)

	if _, err := os.Stat(item.Path); err != nil {
		t.Error("source removed despite collision")
	}
	records := h.mustRecent(t, 1)
	if len(records) != 1 || records[0].Action != audit.ActionFailed {
		t.Fatalf("audit records = %+v", records)
	}
	if records[0].FailureKind != "collision" {
		t.Errorf("failure kind = %q, want collision", records[0].FailureKind)
	}
}

func TestProcessItemVanishedFileIsDropped(t *testing.T) {
	h := newHarness(t, wireLookup())
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")
	if err := os.Remove(item.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	h.manager.ProcessItem(ctx, item)

	if remaining, _ := h.store.GetByID(ctx, item.ID); remaining != nil {
		t.Errorf("vanished file still queued: %+v", remaining)
	}
	if len(h.mustRecent(t, 10)) != 0 {
		t.Error("vanished file wrote an audit record")
	}
}

func TestStartDrainsReadyQueue(t *testing.T) {
	h := newHarness(t, wireLookup())
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e01.mkv")

	if err := h.manager.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.manager.Stop()

	deadline := time.After(5 * time.Second)
	for {
		remaining, err := h.store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if remaining == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("processor never drained the ready item")
		case <-time.After(20 * time.Millisecond):
		}
	}

	records := h.mustRecent(t, 1)
	if len(records) != 1 || records[0].Action != audit.ActionApplied {
		t.Fatalf("audit records = %+v", records)
	}
}

func TestProcessItemRetryRecovers(t *testing.T) {
	lookup := wireLookup()
	lookup.searchErr = tvdb.ErrUnavailable
	h := newHarness(t, lookup, testsupport.WithRetry(3600, 1))
	ctx := context.Background()
	item := h.stableItem(t, "the.wire.s01e02.mkv")

	h.manager.ProcessItem(ctx, item)

	scheduler := processor.NewScheduler(h.store, h.cfg, logging.NewNop())
	scheduler.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if released, err := scheduler.ReleaseDue(ctx); err != nil || released != 1 {
		t.Fatalf("release due = %d, %v", released, err)
	}

	// The outage clears before the retry runs.
	lookup.searchErr = nil
	retrying, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	h.manager.ProcessItem(ctx, retrying)

	dest := filepath.Join(h.cfg.Paths.ShowsDirs[0], "The Wire", "Season 01",
		"The Wire - S01E02 - The Detail.mkv")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("destination after recovered retry: %v", err)
	}
	if remaining, _ := h.store.GetByID(ctx, item.ID); remaining != nil {
		t.Errorf("item still queued after success: %+v", remaining)
	}
	records := h.mustRecent(t, 10)
	if len(records) != 1 || records[0].Action != audit.ActionApplied {
		t.Fatalf("audit records = %+v", records)
	}
}
