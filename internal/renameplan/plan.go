package renameplan

import (
	"fmt"
	"path/filepath"
	"strings"

	"showrenamer/internal/matching"
	"showrenamer/internal/textutil"
)

// Plan is a fully resolved rename, computed before anything touches the
// filesystem. The same match against the same configuration always produces
// the same plan.
type Plan struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// NoOp reports whether the plan's source already sits at its destination.
func (p Plan) NoOp() bool {
	return p.Source == p.Destination
}

// FileName renders the canonical episode filename for a match, preserving
// the source file's extension.
func FileName(result *matching.Result, ext string) string {
	label := episodeLabel(result)
	name := fmt.Sprintf("%s - %s", result.SeriesName, label)
	if result.EpisodeTitle != "" {
		name = fmt.Sprintf("%s - %s", name, result.EpisodeTitle)
	}
	return textutil.SanitizeFileName(name) + strings.ToLower(ext)
}

func episodeLabel(result *matching.Result) string {
	label := fmt.Sprintf("S%02dE%02d", result.Season, result.Episodes[0])
	if len(result.Episodes) > 1 {
		label += fmt.Sprintf("-E%02d", result.Episodes[len(result.Episodes)-1])
	}
	return label
}

// buildName computes the destination basename for source given its match.
func buildName(source string, result *matching.Result) string {
	return FileName(result, filepath.Ext(source))
}
