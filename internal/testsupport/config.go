package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"showrenamer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.TVDB.APIKey = "test"
	cfg.Paths.WatchDirs = []string{filepath.Join(base, "incoming")}
	cfg.Paths.ShowsDirs = []string{filepath.Join(base, "shows")}
	cfg.Paths.FallbackDir = filepath.Join(base, "unsorted")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CachePath = filepath.Join(base, "cache", "series_cache.json")
	cfg.Processing.StabilityPeriod = 0
	cfg.Processing.RetryInterval = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{
		cfg.Paths.WatchDirs[0],
		cfg.Paths.ShowsDirs[0],
		cfg.Paths.FallbackDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		filepath.Dir(cfg.Paths.CachePath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("create test directory %s: %v", dir, err)
		}
	}

	return &cfg
}

// WithMode sets the operation mode on the test config.
func WithMode(mode config.Mode) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.Mode = string(mode)
	}
}

// WithStabilityPeriod sets the quiet period in seconds on the test config.
func WithStabilityPeriod(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.StabilityPeriod = seconds
	}
}

// WithRetry sets the retry interval and budget on the test config.
func WithRetry(intervalSeconds, budget int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.RetryInterval = intervalSeconds
		cfg.Processing.RetryBudget = budget
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
