package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"showrenamer/internal/audit"
	"showrenamer/internal/config"
	"showrenamer/internal/daemon"
	"showrenamer/internal/library"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/metadata/tvdb"
	"showrenamer/internal/parse"
	"showrenamer/internal/processor"
	"showrenamer/internal/queue"
	"showrenamer/internal/renameplan"
	"showrenamer/internal/showcache"
	"showrenamer/internal/stability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	parser, err := parse.New(cfg.Parsing)
	if err != nil {
		logger.Error("compile parsing rules", logging.Error(err))
		return
	}

	client, err := tvdb.New(cfg.TVDB.APIKey, cfg.TVDB.BaseURL, cfg.TVDB.Language, cfg.TVDBRequestTimeout())
	if err != nil {
		logger.Error("create tvdb client", logging.Error(err))
		return
	}

	cache := showcache.NewCache(cfg.Paths.CachePath, cfg.CacheTTL(), logger)
	matcher := matching.New(cfg, cache, client, logger)
	executor := renameplan.New(cfg, library.New(cfg), logger)
	trail := audit.New(cfg.AuditLogPath())
	manager := processor.NewManager(cfg, store, parser, matcher, executor, trail, logger)
	tracker := stability.New(store, cfg, logger)
	scheduler := processor.NewScheduler(store, cfg, logger)

	d, err := daemon.New(cfg, store, logger, tracker, manager, scheduler)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("showrenamerd shutting down")
}
