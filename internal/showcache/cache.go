package showcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"showrenamer/internal/logging"
)

// EpisodeKey identifies one episode within a series as sNNeNN.
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("s%02de%02d", season, episode)
}

// Entry represents a cached mapping from a normalized query to series
// metadata, including the full episode title index.
type Entry struct {
	Query      string            `json:"query"`
	SeriesID   int64             `json:"series_id"`
	SeriesName string            `json:"series_name"`
	Year       string            `json:"year"`
	Episodes   map[string]string `json:"episodes"` // EpisodeKey -> episode title
	CachedAt   time.Time         `json:"cached_at"`
}

// expired reports whether the entry is older than ttl.
func (e Entry) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.CachedAt) > ttl
}

// Cache provides thread-safe access to the series metadata cache. Entries
// carry a TTL; expired entries are dropped lazily on lookup so a stale hit
// never short-circuits a fresh API lookup. If path is empty the cache is
// non-functional and all operations become no-ops.
type Cache struct {
	path    string
	ttl     time.Duration
	logger  *slog.Logger
	clock   func() time.Time
	mu      sync.RWMutex
	entries map[string]Entry // keyed by normalized query
}

// NewCache creates a cache instance backed by the JSON file at path. The
// file is created lazily on first Store call.
func NewCache(path string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "showcache")

	c := &Cache{
		path:    path,
		ttl:     ttl,
		logger:  logger,
		clock:   time.Now,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load series cache",
			logging.Error(err),
			logging.String(logging.FieldPath, path))
	}

	return c
}

// Lookup returns the entry for the given query if present and not expired.
// An expired entry is removed as a side effect.
func (c *Cache) Lookup(query string) (Entry, bool) {
	query = normalizeQuery(query)
	if query == "" || c.path == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	entry, found := c.entries[query]
	c.mu.RUnlock()
	if !found {
		return Entry{}, false
	}

	if entry.expired(c.ttl, c.clock()) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Store may have
		// refreshed the entry.
		if current, ok := c.entries[query]; ok && current.expired(c.ttl, c.clock()) {
			delete(c.entries, query)
			if err := c.save(); err != nil {
				c.logger.Warn("failed to persist cache after expiry", logging.Error(err))
			}
		}
		c.mu.Unlock()
		c.logger.Debug("series cache entry expired", logging.String("query", query))
		return Entry{}, false
	}

	return entry, true
}

// Store adds or refreshes an entry under one or more query keys and persists
// to disk. Storing the same series under several spellings lets later
// lookups hit without a normalization round trip.
func (c *Cache) Store(entry Entry, queries ...string) error {
	if c.path == "" {
		return nil
	}

	keys := make([]string, 0, len(queries)+1)
	for _, q := range append([]string{entry.Query}, queries...) {
		if normalized := normalizeQuery(q); normalized != "" {
			keys = append(keys, normalized)
		}
	}
	if len(keys) == 0 {
		return errors.New("cache entry needs at least one query key")
	}

	if entry.CachedAt.IsZero() {
		entry.CachedAt = c.clock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		keyed := entry
		keyed.Query = key
		c.entries[key] = keyed
	}

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached series metadata",
		logging.String("query", keys[0]),
		logging.Int64("series_id", entry.SeriesID),
		logging.String(logging.FieldSeries, entry.SeriesName),
		logging.Int("episode_count", len(entry.Episodes)))

	return nil
}

// List returns all live entries sorted newest first.
func (c *Cache) List() []Entry {
	if c.path == "" {
		return nil
	}

	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.expired(c.ttl, now) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	return entries
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Count returns the number of live entries.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, entry := range c.entries {
		if !entry.expired(c.ttl, now) {
			count++
		}
	}
	return count
}

// SetClock overrides the time source, for tests.
func (c *Cache) SetClock(clock func() time.Time) {
	c.clock = clock
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if key := normalizeQuery(entry.Query); key != "" {
			entry.Query = key
			c.entries[key] = entry
		}
	}

	c.logger.Debug("loaded series cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String(logging.FieldPath, c.path))

	return nil
}

// save writes the cache to disk atomically. Callers hold the write lock.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].CachedAt.After(entries[j].CachedAt)
		}
		return entries[i].Query < entries[j].Query
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
