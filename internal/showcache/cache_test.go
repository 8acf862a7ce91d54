package showcache_test

import (
	"path/filepath"
	"testing"
	"time"

	"showrenamer/internal/logging"
	"showrenamer/internal/showcache"
)

func cachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "series_cache.json")
}

func sampleEntry() showcache.Entry {
	return showcache.Entry{
		Query:      "the wire",
		SeriesID:   79126,
		SeriesName: "The Wire",
		Year:       "2002",
		Episodes: map[string]string{
			showcache.EpisodeKey(1, 1): "The Target",
			showcache.EpisodeKey(1, 2): "The Detail",
		},
	}
}

func TestStoreAndLookup(t *testing.T) {
	cache := showcache.NewCache(cachePath(t), time.Hour, logging.NewNop())

	if err := cache.Store(sampleEntry()); err != nil {
		t.Fatalf("store: %v", err)
	}

	entry, found := cache.Lookup("The  Wire")
	if !found {
		t.Fatal("lookup missed after store")
	}
	if entry.SeriesID != 79126 {
		t.Errorf("series id = %d, want 79126", entry.SeriesID)
	}
	if entry.Episodes[showcache.EpisodeKey(1, 2)] != "The Detail" {
		t.Errorf("episode title = %q", entry.Episodes[showcache.EpisodeKey(1, 2)])
	}
}

func TestStoreUnderMultipleKeys(t *testing.T) {
	cache := showcache.NewCache(cachePath(t), time.Hour, logging.NewNop())

	if err := cache.Store(sampleEntry(), "wire", "the wire 2002"); err != nil {
		t.Fatalf("store: %v", err)
	}

	for _, query := range []string{"the wire", "wire", "the wire 2002"} {
		if _, found := cache.Lookup(query); !found {
			t.Errorf("lookup %q missed", query)
		}
	}
}

func TestExpiryIsLazy(t *testing.T) {
	cache := showcache.NewCache(cachePath(t), time.Hour, logging.NewNop())

	now := time.Now()
	cache.SetClock(func() time.Time { return now })

	if err := cache.Store(sampleEntry()); err != nil {
		t.Fatalf("store: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, found := cache.Lookup("the wire"); !found {
		t.Fatal("entry expired before its TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, found := cache.Lookup("the wire"); found {
		t.Fatal("entry survived past its TTL")
	}
	if cache.Count() != 0 {
		t.Errorf("count = %d after expiry, want 0", cache.Count())
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	path := cachePath(t)

	first := showcache.NewCache(path, time.Hour, logging.NewNop())
	if err := first.Store(sampleEntry()); err != nil {
		t.Fatalf("store: %v", err)
	}

	second := showcache.NewCache(path, time.Hour, logging.NewNop())
	entry, found := second.Lookup("the wire")
	if !found {
		t.Fatal("lookup missed in a fresh instance")
	}
	if entry.SeriesName != "The Wire" {
		t.Errorf("series name = %q", entry.SeriesName)
	}
}

func TestEmptyPathIsNoop(t *testing.T) {
	cache := showcache.NewCache("", time.Hour, logging.NewNop())

	if err := cache.Store(sampleEntry()); err != nil {
		t.Fatalf("store on pathless cache: %v", err)
	}
	if _, found := cache.Lookup("the wire"); found {
		t.Fatal("pathless cache returned a hit")
	}
	if cache.Count() != 0 {
		t.Errorf("count = %d, want 0", cache.Count())
	}
}
