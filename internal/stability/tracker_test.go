package stability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"showrenamer/internal/logging"
	"showrenamer/internal/queue"
	"showrenamer/internal/stability"
	"showrenamer/internal/testsupport"
)

func TestSweepPromotesSettledFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStabilityPeriod(60))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(testsupport.BaseDir(cfg), "show.s01e01.mkv")
	testsupport.WriteFile(t, path, []byte("payload"))

	tracker := stability.New(store, cfg, logging.NewNop())
	now := time.Now().UTC()
	tracker.SetClock(func() time.Time { return now })

	info, err := stabStat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := tracker.Observe(ctx, path, info.size, info.mtime); err != nil {
		t.Fatalf("observe: %v", err)
	}

	// Quiet period not yet elapsed.
	promoted, err := tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("promoted %d files before quiet period elapsed", promoted)
	}

	now = now.Add(61 * time.Second)
	promoted, err = tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("promoted = %d, want 1", promoted)
	}

	item, err := store.GetByPath(ctx, path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Status != queue.StatusStable {
		t.Errorf("status = %s, want %s", item.Status, queue.StatusStable)
	}
}

func TestSweepResetsClockOnGrowth(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStabilityPeriod(60))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(testsupport.BaseDir(cfg), "growing.s01e01.mkv")
	testsupport.WriteFile(t, path, []byte("partial"))

	tracker := stability.New(store, cfg, logging.NewNop())
	now := time.Now().UTC()
	tracker.SetClock(func() time.Time { return now })

	info, err := stabStat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := tracker.Observe(ctx, path, info.size, info.mtime); err != nil {
		t.Fatalf("observe: %v", err)
	}

	// The file keeps growing past the original quiet deadline.
	now = now.Add(45 * time.Second)
	testsupport.WriteFile(t, path, []byte("partial plus more data"))

	now = now.Add(30 * time.Second)
	promoted, err := tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if promoted != 0 {
		t.Fatal("promoted a file that changed inside the quiet period")
	}

	// A full quiet period after the growth, the file settles.
	now = now.Add(61 * time.Second)
	promoted, err = tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("promoted = %d, want 1", promoted)
	}
}

func TestSweepDropsVanishedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStabilityPeriod(0))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(testsupport.BaseDir(cfg), "gone.s01e01.mkv")
	tracker := stability.New(store, cfg, logging.NewNop())
	if _, err := tracker.Observe(ctx, path, 100, time.Now()); err != nil {
		t.Fatalf("observe: %v", err)
	}

	if _, err := tracker.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	item, err := store.GetByPath(ctx, path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Errorf("vanished file still tracked with status %s", item.Status)
	}
}

type statInfo struct {
	size  int64
	mtime time.Time
}

func stabStat(path string) (statInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return statInfo{}, err
	}
	return statInfo{size: info.Size(), mtime: info.ModTime()}, nil
}
