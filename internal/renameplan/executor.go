package renameplan

import (
	"log/slog"
	"os"
	"path/filepath"

	"showrenamer/internal/config"
	"showrenamer/internal/fileutil"
	"showrenamer/internal/library"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/services"
)

// Executor turns matches into plans and applies them according to the
// configured operation mode.
type Executor struct {
	cfg      *config.Config
	resolver *library.Resolver
	logger   *slog.Logger
}

// New builds an executor.
func New(cfg *config.Config, resolver *library.Resolver, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:      cfg,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "executor"),
	}
}

// Build computes the plan for source under the given mode without touching
// the filesystem. rename_only keeps the file in its directory; the move
// modes resolve a library destination.
func (e *Executor) Build(source string, result *matching.Result, mode config.Mode) (Plan, error) {
	name := buildName(source, result)

	var destDir string
	switch mode {
	case config.ModeRenameOnly:
		destDir = filepath.Dir(source)
	default:
		dir, err := e.resolver.EpisodeDir(result.SeriesName, result.Season)
		if err != nil {
			return Plan{}, err
		}
		destDir = dir
	}

	return Plan{Source: source, Destination: filepath.Join(destDir, name)}, nil
}

// Apply executes the plan. Dry-run mode reports without acting. A plan whose
// source already sits at its destination succeeds without filesystem work,
// so replaying an already applied rename is harmless. A different file
// already occupying the destination is a collision and the source is left
// untouched.
func (e *Executor) Apply(plan Plan, mode config.Mode) error {
	if mode == config.ModeDryRun {
		e.logger.Info("dry run, would rename",
			logging.String("source", plan.Source),
			logging.String("destination", plan.Destination))
		return nil
	}

	if plan.NoOp() {
		e.logger.Debug("file already at destination",
			logging.String(logging.FieldPath, plan.Destination))
		return nil
	}

	if _, err := os.Stat(plan.Destination); err == nil {
		return services.Wrap(services.ErrCollision, "executor", "apply plan",
			"destination already exists: "+plan.Destination, nil)
	} else if !os.IsNotExist(err) {
		return services.Wrap(services.ErrExecution, "executor", "apply plan",
			"failed to stat destination "+plan.Destination, err)
	}

	if err := os.MkdirAll(filepath.Dir(plan.Destination), 0o755); err != nil {
		return services.Wrap(services.ErrExecution, "executor", "apply plan",
			"failed to create destination directory", err)
	}

	if err := fileutil.MoveFile(plan.Source, plan.Destination); err != nil {
		return services.Wrap(services.ErrExecution, "executor", "apply plan",
			"failed to move file into place", err)
	}

	e.logger.Info("renamed file",
		logging.String("source", plan.Source),
		logging.String("destination", plan.Destination))
	return nil
}
