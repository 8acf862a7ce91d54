package queue_test

import (
	"context"
	"testing"
	"time"

	"showrenamer/internal/queue"
	"showrenamer/internal/testsupport"
)

func TestObserveInsertsNewFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/show.s01e01.mkv", 1024, now, now)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusNew {
		t.Fatalf("expected new status, got %s", item.Status)
	}
	if item.LastSize != 1024 {
		t.Fatalf("expected recorded size 1024, got %d", item.LastSize)
	}

	fetched, err := store.GetByPath(ctx, "/incoming/show.s01e01.mkv")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if fetched == nil || fetched.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", fetched)
	}
}

func TestObserveUniquePerPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	first, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("first Observe: %v", err)
	}
	second, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Observe: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one tracked file per path, got ids %d and %d", first.ID, second.ID)
	}
}

func TestObserveChangeResetsStabilityClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	t0 := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/a.mkv", 10, t0, t0)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := store.MarkStable(ctx, item.ID); err != nil {
		t.Fatalf("MarkStable: %v", err)
	}

	t1 := t0.Add(time.Minute)
	grown, err := store.Observe(ctx, "/incoming/a.mkv", 20, t1, t1)
	if err != nil {
		t.Fatalf("Observe after growth: %v", err)
	}
	if grown.Status != queue.StatusNew {
		t.Fatalf("expected change to demote stable file to new, got %s", grown.Status)
	}
	if !grown.LastChange.Equal(t1) {
		t.Fatalf("expected change clock reset to %v, got %v", t1, grown.LastChange)
	}
}

func TestMarkStableOnlyPromotesNew(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	item.Status = queue.StatusFailed
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.MarkStable(ctx, item.ID); err != nil {
		t.Fatalf("MarkStable: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed status untouched, got %s", fetched.Status)
	}
}

func TestScheduleAndReleaseRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	item.Attempts = 1
	item.FailureKind = "lookup_error"
	item.LastError = "tvdb timeout"
	wake := now.Add(time.Hour)
	if err := store.ScheduleRetry(ctx, item, wake); err != nil {
		t.Fatalf("ScheduleRetry: %v", err)
	}

	// Not yet due.
	released, err := store.ReleaseDueRetries(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ReleaseDueRetries: %v", err)
	}
	if released != 0 {
		t.Fatalf("expected no releases before wake time, got %d", released)
	}

	released, err = store.ReleaseDueRetries(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ReleaseDueRetries: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected one release after wake time, got %d", released)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusRetrying {
		t.Fatalf("expected retrying status, got %s", fetched.Status)
	}
	if fetched.NextRetryAt != nil {
		t.Fatalf("expected cleared wake time, got %v", fetched.NextRetryAt)
	}
	if fetched.Attempts != 1 {
		t.Fatalf("expected attempts preserved, got %d", fetched.Attempts)
	}
}

func TestResetInFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	item.Status = queue.StatusMatched
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reset, err := store.ResetInFlight(ctx)
	if err != nil {
		t.Fatalf("ResetInFlight: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected one reset row, got %d", reset)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusStable {
		t.Fatalf("expected stable after reset, got %s", fetched.Status)
	}
}

func TestRemoveEndsTracking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	item, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := store.Remove(ctx, item.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected row removed, got %#v", fetched)
	}

	// Re-observation after removal starts a fresh instance.
	again, err := store.Observe(ctx, "/incoming/a.mkv", 10, now, now)
	if err != nil {
		t.Fatalf("Observe after remove: %v", err)
	}
	if again.ID == item.ID {
		t.Fatal("expected a fresh tracked file after removal")
	}
	if again.Status != queue.StatusNew {
		t.Fatalf("expected fresh instance in new status, got %s", again.Status)
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	for _, path := range []string{"/a.mkv", "/b.mkv", "/c.mkv"} {
		if _, err := store.Observe(ctx, path, 10, now, now); err != nil {
			t.Fatalf("Observe %s: %v", path, err)
		}
	}
	item, err := store.GetByPath(ctx, "/c.mkv")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if err := store.MarkStable(ctx, item.ID); err != nil {
		t.Fatalf("MarkStable: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected 3 tracked files, got %d", stats.Total)
	}
	if stats.ByStatus[queue.StatusNew] != 2 || stats.ByStatus[queue.StatusStable] != 1 {
		t.Fatalf("unexpected status counts: %#v", stats.ByStatus)
	}
}
