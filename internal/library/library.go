package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"showrenamer/internal/config"
	"showrenamer/internal/services"
	"showrenamer/internal/textutil"
)

// Resolver locates the library directory for a series. Show folders are
// matched by normalized name across the configured shows directories;
// series without a folder land in the fallback directory.
type Resolver struct {
	cfg    *config.Config
	folder cases.Caser
}

// New builds a resolver over the configured library paths.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg, folder: cases.Fold()}
}

// SeasonDirName renders the season folder name. Season zero is the
// conventional home for specials.
func SeasonDirName(season int) string {
	if season == 0 {
		return "Specials"
	}
	return fmt.Sprintf("Season %02d", season)
}

// SeriesDir returns the directory for the named series, searching every
// shows directory for an existing folder whose normalized name matches.
// When none exists, a new folder under the first shows directory is
// returned; with no shows directories configured, the fallback directory.
// found reports whether an existing folder was matched.
func (r *Resolver) SeriesDir(seriesName string) (dir string, found bool, err error) {
	want := r.normalize(seriesName)

	for _, showsDir := range r.cfg.Paths.ShowsDirs {
		entries, err := os.ReadDir(showsDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", false, services.Wrap(services.ErrExecution, "library", "scan shows dir",
				"failed to read shows directory "+showsDir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if r.normalize(entry.Name()) == want {
				return filepath.Join(showsDir, entry.Name()), true, nil
			}
		}
	}

	if len(r.cfg.Paths.ShowsDirs) > 0 {
		name := textutil.SanitizeFileName(seriesName)
		return filepath.Join(r.cfg.Paths.ShowsDirs[0], name), false, nil
	}
	if r.cfg.Paths.FallbackDir != "" {
		return r.cfg.Paths.FallbackDir, false, nil
	}
	return "", false, services.Wrap(services.ErrConfiguration, "library", "resolve series dir",
		"no shows directories or fallback directory configured", nil)
}

// EpisodeDir returns the directory an episode file belongs in, creating
// nothing. Files routed to the fallback directory skip season folders so
// the unsorted pile stays flat.
func (r *Resolver) EpisodeDir(seriesName string, season int) (string, error) {
	seriesDir, _, err := r.SeriesDir(seriesName)
	if err != nil {
		return "", err
	}
	if seriesDir == r.cfg.Paths.FallbackDir {
		return seriesDir, nil
	}
	return filepath.Join(seriesDir, SeasonDirName(season)), nil
}

// ListSeries returns the show folder names found across the shows
// directories, sorted by directory order then name.
func (r *Resolver) ListSeries() ([]string, error) {
	var names []string
	for _, showsDir := range r.cfg.Paths.ShowsDirs {
		entries, err := os.ReadDir(showsDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, services.Wrap(services.ErrExecution, "library", "list series",
				"failed to read shows directory "+showsDir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	return names, nil
}

func (r *Resolver) normalize(name string) string {
	return strings.Join(strings.Fields(r.folder.String(strings.Join(textutil.Tokenize(strings.ToLower(name)), " "))), " ")
}
