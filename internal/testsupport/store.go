package testsupport

import (
	"context"
	"testing"
	"time"

	"showrenamer/internal/config"
	"showrenamer/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ObserveFile records an observation for tests using the provided store.
func ObserveFile(t testing.TB, store *queue.Store, path string, size int64, mtime time.Time) *queue.Item {
	t.Helper()

	item, err := store.Observe(context.Background(), path, size, mtime, time.Now().UTC())
	if err != nil {
		t.Fatalf("store.Observe: %v", err)
	}
	return item
}
