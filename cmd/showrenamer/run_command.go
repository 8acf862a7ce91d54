package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"showrenamer/internal/audit"
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

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the rename daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}

			parser, err := parse.New(cfg.Parsing)
			if err != nil {
				return err
			}
			client, err := tvdb.New(cfg.TVDB.APIKey, cfg.TVDB.BaseURL, cfg.TVDB.Language, cfg.TVDBRequestTimeout())
			if err != nil {
				return err
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
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()
			return nil
		},
	}
}
