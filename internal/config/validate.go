package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTVDB(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateParsing(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTVDB() error {
	if c.TVDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/showrenamer/config.toml"
		}
		return fmt.Errorf("tvdb.api_key is required. Set TVDB_API_KEY env var or edit %s (create with 'showrenamer config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.ConfidenceThreshold < 0 || c.Matching.ConfidenceThreshold > 1 {
		return errors.New("matching.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateParsing() error {
	if len(c.Parsing.Patterns) == 0 {
		return errors.New("parsing.patterns must not be empty")
	}
	for i, pattern := range c.Parsing.Patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("parsing.patterns[%d]: %w", i, err)
		}
		if groups := re.NumSubexp(); groups != 2 && groups != 3 {
			return fmt.Errorf("parsing.patterns[%d]: expected 2 capture groups (season, episode) or 3 (title, season, episode), got %d", i, groups)
		}
	}
	for i, pattern := range c.Parsing.StripPrefixes {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return fmt.Errorf("parsing.strip_prefixes[%d]: %w", i, err)
		}
	}
	for i, pattern := range c.Parsing.StripSuffixes {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return fmt.Errorf("parsing.strip_suffixes[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateProcessing() error {
	switch c.OperationMode() {
	case ModeDryRun, ModeRenameOnly, ModeRenameAndMove:
	default:
		return fmt.Errorf("processing.mode must be one of %q, %q, %q", ModeDryRun, ModeRenameOnly, ModeRenameAndMove)
	}
	if c.Processing.StabilityPeriod < 0 {
		return errors.New("processing.stability_period must not be negative")
	}
	if c.Processing.RetryInterval < 0 {
		return errors.New("processing.retry_interval must not be negative")
	}
	if c.Processing.RetryBudget < 0 {
		return errors.New("processing.retry_budget must not be negative")
	}
	if c.Processing.CacheTTLDays <= 0 {
		return errors.New("processing.cache_ttl_days must be positive")
	}
	if c.OperationMode() == ModeRenameAndMove && len(c.Paths.ShowsDirs) == 0 && c.Paths.FallbackDir == "" {
		return errors.New("processing.mode rename_and_move requires paths.shows_dirs or paths.fallback_dir")
	}
	return nil
}
