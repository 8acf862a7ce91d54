package watchfs

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/services"
)

// Event describes a video file observed in a watched directory.
type Event struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Handler receives file observations from the watcher.
type Handler func(ctx context.Context, event Event) error

// Watcher monitors the configured watch directories recursively and reports
// every create or write touching a video file. New subdirectories are added
// to the watch set as they appear.
type Watcher struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler Handler
	fsw     *fsnotify.Watcher
}

// New prepares a watcher for the configured watch directories.
func New(cfg *config.Config, logger *slog.Logger, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watcher", "create watcher",
			"failed to initialize filesystem notifications", err)
	}
	return &Watcher{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		handler: handler,
		fsw:     fsw,
	}, nil
}

// Start registers the watch directories and begins dispatching events until
// the context is canceled. It returns once the event loop exits.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.cfg.Paths.WatchDirs {
		if err := w.addTree(dir); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return w.fsw.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// SweepExisting walks the watch directories and reports every video file
// already present. Run at startup so files that arrived while the daemon was
// down are not missed.
func (w *Watcher) SweepExisting(ctx context.Context) error {
	for _, dir := range w.cfg.Paths.WatchDirs {
		err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() || !w.cfg.IsVideoFile(path) {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			return w.handler(ctx, Event{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		})
		if err != nil {
			return services.Wrap(services.ErrExecution, "watcher", "sweep existing",
				"failed to scan watch directory "+dir, err)
		}
	}
	return nil
}

func (w *Watcher) dispatch(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// The file may already be gone; the stability sweep cleans up.
		return
	}

	if info.IsDir() {
		if event.Op.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					logging.String(logging.FieldPath, event.Name),
					logging.Error(err))
			}
		}
		return
	}

	if !w.cfg.IsVideoFile(event.Name) {
		return
	}

	if err := w.handler(ctx, Event{Path: event.Name, Size: info.Size(), ModTime: info.ModTime()}); err != nil {
		w.logger.Error("failed to record file observation",
			logging.String(logging.FieldPath, event.Name),
			logging.Error(err))
	}
}

// addTree watches dir and every subdirectory under it.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching directory", logging.String(logging.FieldPath, path))
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watcher", "add watch",
			"failed to watch directory tree "+root, err)
	}
	return nil
}
