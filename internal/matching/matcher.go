package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"showrenamer/internal/config"
	"showrenamer/internal/logging"
	"showrenamer/internal/metadata/tvdb"
	"showrenamer/internal/parse"
	"showrenamer/internal/services"
	"showrenamer/internal/showcache"
	"showrenamer/internal/textutil"
)

// Result is a confirmed identification of a parsed candidate.
type Result struct {
	SeriesID     int64   `json:"series_id"`
	SeriesName   string  `json:"series_name"`
	Season       int     `json:"season"`
	Episodes     []int   `json:"episodes"`
	EpisodeTitle string  `json:"episode_title"`
	Confidence   float64 `json:"confidence"`
	FromCache    bool    `json:"from_cache"`
}

// Matcher resolves parsed candidates against the local series cache, falling
// back to the metadata API on a miss. Confirmed lookups are written back to
// the cache under every query spelling that was tried.
type Matcher struct {
	cfg     *config.Config
	cache   *showcache.Cache
	lookup  tvdb.Lookuper
	logger  *slog.Logger
	folder  cases.Caser
	mapping map[string]string
}

// New builds a matcher.
func New(cfg *config.Config, cache *showcache.Cache, lookup tvdb.Lookuper, logger *slog.Logger) *Matcher {
	folder := cases.Fold()
	mapping := make(map[string]string, len(cfg.Matching.SeriesMapping))
	for from, to := range cfg.Matching.SeriesMapping {
		mapping[normalizeTitle(folder, from)] = to
	}
	return &Matcher{
		cfg:     cfg,
		cache:   cache,
		lookup:  lookup,
		logger:  logging.NewComponentLogger(logger, "matcher"),
		folder:  folder,
		mapping: mapping,
	}
}

// Match identifies the candidate's series and episode titles. A series or
// episode the metadata source authoritatively lacks yields a terminal
// no-match error; API outages yield a retryable lookup error.
func (m *Matcher) Match(ctx context.Context, candidate parse.Candidate) (*Result, error) {
	if len(candidate.Episodes) == 0 {
		return nil, services.Wrap(services.ErrNoMatch, "matcher", "validate candidate",
			"candidate has no episode numbers", nil)
	}

	keys := m.lookupKeys(candidate.Title)

	for _, key := range keys {
		entry, found := m.cache.Lookup(key)
		if !found {
			continue
		}
		result, err := m.Evaluate(entry, candidate)
		if err != nil {
			return nil, err
		}
		result.FromCache = true
		m.logger.Debug("matched from cache",
			logging.String(logging.FieldSeries, result.SeriesName),
			logging.String(logging.FieldEpisodeLabel, candidate.Label()))
		return result, nil
	}

	for _, key := range keys {
		result, entry, err := m.matchViaAPI(ctx, key, candidate)
		if err != nil {
			if errors.Is(err, errKeyExhausted) {
				continue
			}
			return nil, err
		}

		if cacheErr := m.cache.Store(*entry, keys...); cacheErr != nil {
			m.logger.Warn("failed to cache series lookup", logging.Error(cacheErr))
		}
		m.logger.Info("matched via api",
			logging.String(logging.FieldSeries, result.SeriesName),
			logging.String(logging.FieldEpisodeLabel, candidate.Label()),
			logging.Float64("confidence", result.Confidence))
		return result, nil
	}

	return nil, services.Wrap(services.ErrNoMatch, "matcher", "search series",
		fmt.Sprintf("no series matches %q at or above confidence %.2f",
			candidate.Title, m.cfg.Matching.ConfidenceThreshold), nil)
}

// errKeyExhausted signals that a lookup key produced no acceptable series
// and the next key should be tried.
var errKeyExhausted = errors.New("matching: key exhausted")

func (m *Matcher) matchViaAPI(ctx context.Context, key string, candidate parse.Candidate) (*Result, *showcache.Entry, error) {
	results, err := m.lookup.SearchSeries(ctx, key)
	if err != nil {
		if errors.Is(err, tvdb.ErrNotFound) {
			return nil, nil, errKeyExhausted
		}
		return nil, nil, services.Wrap(services.ErrLookup, "matcher", "search series",
			"series search failed for "+key, err)
	}

	best, confidence := m.pickSeries(key, results)
	if best == nil {
		return nil, nil, errKeyExhausted
	}

	episodes, err := m.lookup.SeriesEpisodes(ctx, best.ID)
	if err != nil {
		if errors.Is(err, tvdb.ErrNotFound) {
			return nil, nil, services.Wrap(services.ErrNoMatch, "matcher", "fetch episodes",
				fmt.Sprintf("series %q has no episode list", best.Name), err)
		}
		return nil, nil, services.Wrap(services.ErrLookup, "matcher", "fetch episodes",
			"episode fetch failed for "+best.Name, err)
	}

	entry := showcache.Entry{
		Query:      key,
		SeriesID:   best.ID,
		SeriesName: best.Name,
		Year:       best.Year,
		Episodes:   make(map[string]string, len(episodes)),
	}
	for _, ep := range episodes {
		entry.Episodes[showcache.EpisodeKey(ep.SeasonNumber, ep.EpisodeNumber)] = ep.Name
	}

	result, err := m.Evaluate(entry, candidate)
	if err != nil {
		return nil, nil, err
	}
	result.Confidence = confidence
	return result, &entry, nil
}

// pickSeries scores every search result against the query and returns the
// best acceptable one. An exact fold-normalized name match always wins; ties
// on score fall to the earlier result, which the API orders by relevance.
func (m *Matcher) pickSeries(query string, results []tvdb.Series) (*tvdb.Series, float64) {
	normalizedQuery := normalizeTitle(m.folder, query)

	var best *tvdb.Series
	bestScore := 0.0
	for i := range results {
		series := &results[i]
		if normalizeTitle(m.folder, series.Name) == normalizedQuery {
			return series, 1.0
		}
		score := textutil.Similarity(query, series.Name)
		if score > bestScore {
			best = series
			bestScore = score
		}
	}

	if best == nil || bestScore < m.cfg.Matching.ConfidenceThreshold {
		return nil, 0
	}
	return best, bestScore
}

// Evaluate maps the candidate's episode numbers to titles from a cache
// entry. Every requested episode must exist. It never touches the cache or
// the network, so identification can be tested against a fixed snapshot.
func (m *Matcher) Evaluate(entry showcache.Entry, candidate parse.Candidate) (*Result, error) {
	for _, episode := range candidate.Episodes {
		if _, ok := entry.Episodes[showcache.EpisodeKey(candidate.Season, episode)]; !ok {
			return nil, services.Wrap(services.ErrNoMatch, "matcher", "resolve episode",
				fmt.Sprintf("%s has no episode S%02dE%02d", entry.SeriesName, candidate.Season, episode), nil)
		}
	}

	return &Result{
		SeriesID:     entry.SeriesID,
		SeriesName:   entry.SeriesName,
		Season:       candidate.Season,
		Episodes:     append([]int(nil), candidate.Episodes...),
		EpisodeTitle: entry.Episodes[showcache.EpisodeKey(candidate.Season, candidate.Episodes[0])],
		Confidence:   1.0,
	}, nil
}

// lookupKeys orders the query spellings to try, most specific first: the
// configured series mapping, the cleaned title as parsed, then progressively
// looser normalizations.
func (m *Matcher) lookupKeys(title string) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(key string) {
		key = strings.Join(strings.Fields(key), " ")
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if mapped, ok := m.mapping[normalizeTitle(m.folder, title)]; ok {
		add(mapped)
	}
	add(title)
	add(stripPunctuation(title))
	add(stripLeadingArticle(title))
	add(stripLeadingArticle(stripPunctuation(title)))
	return keys
}

func normalizeTitle(folder cases.Caser, title string) string {
	return strings.Join(strings.Fields(folder.String(stripPunctuation(title))), " ")
}

func stripPunctuation(title string) string {
	return strings.Join(textutil.Tokenize(strings.ToLower(title)), " ")
}

func stripLeadingArticle(title string) string {
	fields := strings.Fields(title)
	if len(fields) < 2 {
		return title
	}
	switch strings.ToLower(fields[0]) {
	case "the", "a", "an":
		return strings.Join(fields[1:], " ")
	}
	return title
}

// DisplayTitle renders a parsed lowercase title in display casing, used when
// a filename must be reported before any metadata lookup has run.
func DisplayTitle(title string) string {
	return cases.Title(language.English).String(title)
}
