package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Mode selects how the executor treats a rename plan.
type Mode string

const (
	// ModeDryRun computes and reports plans without touching the filesystem.
	ModeDryRun Mode = "dry_run"
	// ModeRenameOnly renames files in place; never crosses directories.
	ModeRenameOnly Mode = "rename_only"
	// ModeRenameAndMove renames and relocates files into a matching shows
	// directory.
	ModeRenameAndMove Mode = "rename_and_move"
)

// Paths contains directory configuration.
type Paths struct {
	WatchDirs   []string `toml:"watch_dirs"`
	ShowsDirs   []string `toml:"shows_dirs"`
	FallbackDir string   `toml:"fallback_dir"`
	DataDir     string   `toml:"data_dir"`
	LogDir      string   `toml:"log_dir"`
	CachePath   string   `toml:"cache_path"`
}

// TVDB contains configuration for TheTVDB v4 API.
type TVDB struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Matching contains fuzzy matching configuration.
type Matching struct {
	// ConfidenceThreshold is the minimum similarity score in [0,1] a search
	// result must reach before it is accepted.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// SeriesMapping maps cleaned filename titles to canonical series names,
	// consulted before any fuzzy matching.
	SeriesMapping map[string]string `toml:"series_mapping"`
}

// Parsing contains filename parsing configuration. Pattern order is
// significant: the first pattern that matches wins.
type Parsing struct {
	Patterns      []string `toml:"patterns"`
	StripPrefixes []string `toml:"strip_prefixes"`
	StripSuffixes []string `toml:"strip_suffixes"`
}

// Processing contains pipeline timing and mode configuration. All intervals
// are in seconds.
type Processing struct {
	Mode                  string   `toml:"mode"`
	StabilityPeriod       int      `toml:"stability_period"`
	StabilityPollInterval int      `toml:"stability_poll_interval"`
	QueuePollInterval     int      `toml:"queue_poll_interval"`
	RetryInterval         int      `toml:"retry_interval"`
	RetryPollInterval     int      `toml:"retry_poll_interval"`
	RetryBudget           int      `toml:"retry_budget"`
	Workers               int      `toml:"workers"`
	CacheTTLDays          int      `toml:"cache_ttl_days"`
	VideoExtensions       []string `toml:"video_extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for showrenamer.
//
// Configuration sections by subsystem:
//   - Paths: watch dirs, shows dirs, state and cache locations
//   - TVDB: series identification via TheTVDB v4
//   - Matching: fuzzy acceptance threshold and manual series mapping
//   - Parsing: ordered filename patterns and cleanup rules
//   - Processing: operation mode, stability/retry timing, worker count
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	TVDB       TVDB       `toml:"tvdb"`
	Matching   Matching   `toml:"matching"`
	Parsing    Parsing    `toml:"parsing"`
	Processing Processing `toml:"processing"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/showrenamer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("showrenamer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Paths.CachePath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.CachePath))
	}
	if c.OperationMode() == ModeRenameAndMove && c.Paths.FallbackDir != "" {
		dirs = append(dirs, c.Paths.FallbackDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OperationMode returns the configured executor mode.
func (c *Config) OperationMode() Mode {
	return Mode(c.Processing.Mode)
}

// StabilityPeriod returns the quiet period a file must hold before
// processing.
func (c *Config) StabilityPeriod() time.Duration {
	return time.Duration(c.Processing.StabilityPeriod) * time.Second
}

// StabilityPollInterval returns how often pending files are re-observed.
func (c *Config) StabilityPollInterval() time.Duration {
	return time.Duration(c.Processing.StabilityPollInterval) * time.Second
}

// QueuePollInterval returns how often the processor polls for ready files.
func (c *Config) QueuePollInterval() time.Duration {
	return time.Duration(c.Processing.QueuePollInterval) * time.Second
}

// RetryInterval returns the delay before a retryable failure is re-queued.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Processing.RetryInterval) * time.Second
}

// RetryPollInterval returns how often the retry scheduler evaluates due files.
func (c *Config) RetryPollInterval() time.Duration {
	return time.Duration(c.Processing.RetryPollInterval) * time.Second
}

// TVDBRequestTimeout returns the per-request timeout for metadata lookups.
func (c *Config) TVDBRequestTimeout() time.Duration {
	return time.Duration(c.TVDB.RequestTimeout) * time.Second
}

// CacheTTL returns the metadata cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Processing.CacheTTLDays) * 24 * time.Hour
}

// IsVideoFile reports whether the path carries a configured video extension.
func (c *Config) IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range c.Processing.VideoExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// QueueDBPath returns the location of the tracked-file database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// AuditLogPath returns the location of the audit trail.
func (c *Config) AuditLogPath() string {
	return filepath.Join(c.Paths.DataDir, "audit.jsonl")
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
