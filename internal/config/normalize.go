package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTVDB()
	c.normalizeMatching()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	for i, dir := range c.Paths.WatchDirs {
		if c.Paths.WatchDirs[i], err = expandPath(dir); err != nil {
			return fmt.Errorf("paths.watch_dirs[%d]: %w", i, err)
		}
	}
	for i, dir := range c.Paths.ShowsDirs {
		if c.Paths.ShowsDirs[i], err = expandPath(dir); err != nil {
			return fmt.Errorf("paths.shows_dirs[%d]: %w", i, err)
		}
	}
	if c.Paths.FallbackDir, err = expandPath(c.Paths.FallbackDir); err != nil {
		return fmt.Errorf("paths.fallback_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTVDB() {
	c.TVDB.APIKey = strings.TrimSpace(c.TVDB.APIKey)
	if c.TVDB.APIKey == "" {
		c.TVDB.APIKey = strings.TrimSpace(os.Getenv("TVDB_API_KEY"))
	}
	c.TVDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TVDB.BaseURL), "/")
	if c.TVDB.BaseURL == "" {
		c.TVDB.BaseURL = defaultTVDBBaseURL
	}
	c.TVDB.Language = strings.TrimSpace(c.TVDB.Language)
	if c.TVDB.Language == "" {
		c.TVDB.Language = defaultTVDBLanguage
	}
	if c.TVDB.RequestTimeout <= 0 {
		c.TVDB.RequestTimeout = defaultTVDBRequestTimeout
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.SeriesMapping == nil {
		c.Matching.SeriesMapping = map[string]string{}
	}
	mapped := make(map[string]string, len(c.Matching.SeriesMapping))
	for key, value := range c.Matching.SeriesMapping {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		mapped[key] = value
	}
	c.Matching.SeriesMapping = mapped
}

func (c *Config) normalizeProcessing() {
	c.Processing.Mode = strings.ToLower(strings.TrimSpace(c.Processing.Mode))
	if c.Processing.Mode == "" {
		c.Processing.Mode = defaultMode
	}
	if c.Processing.StabilityPollInterval <= 0 {
		c.Processing.StabilityPollInterval = defaultStabilityPollInterval
	}
	if c.Processing.QueuePollInterval <= 0 {
		c.Processing.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Processing.RetryPollInterval <= 0 {
		c.Processing.RetryPollInterval = defaultRetryPollInterval
	}
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = defaultWorkers
	}
	if len(c.Processing.VideoExtensions) == 0 {
		c.Processing.VideoExtensions = defaultVideoExtensions()
	}
	exts := make([]string, 0, len(c.Processing.VideoExtensions))
	for _, ext := range c.Processing.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Processing.VideoExtensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
