package main

import (
	"strings"
	"sync"

	"showrenamer/internal/audit"
	"showrenamer/internal/config"
	"showrenamer/internal/library"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/metadata/tvdb"
	"showrenamer/internal/parse"
	"showrenamer/internal/queue"
	"showrenamer/internal/renameplan"
	"showrenamer/internal/showcache"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func (c *commandContext) trail() (*audit.Trail, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return audit.New(cfg.AuditLogPath()), nil
}

// pipeline bundles the components needed to parse, match, and plan a file
// in-process, shared by the scan and preview commands.
type pipeline struct {
	cfg      *config.Config
	parser   *parse.Parser
	matcher  *matching.Matcher
	executor *renameplan.Executor
}

func (c *commandContext) buildPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	parser, err := parse.New(cfg.Parsing)
	if err != nil {
		return nil, err
	}
	client, err := tvdb.New(cfg.TVDB.APIKey, cfg.TVDB.BaseURL, cfg.TVDB.Language, cfg.TVDBRequestTimeout())
	if err != nil {
		return nil, err
	}

	logger := logging.NewNop()
	cache := showcache.NewCache(cfg.Paths.CachePath, cfg.CacheTTL(), logger)
	return &pipeline{
		cfg:      cfg,
		parser:   parser,
		matcher:  matching.New(cfg, cache, client, logger),
		executor: renameplan.New(cfg, library.New(cfg), logger),
	}, nil
}
