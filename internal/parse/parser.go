package parse

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"showrenamer/internal/config"
	"showrenamer/internal/services"
)

// Candidate is the normalized result of parsing a media filename.
type Candidate struct {
	// Title is the cleaned show-title portion of the filename.
	Title string `json:"title"`
	// Season is the parsed season number.
	Season int `json:"season"`
	// Episodes holds one or more parsed episode numbers in filename order.
	Episodes []int `json:"episodes"`
	// Pattern records which configured pattern matched, for audit context.
	Pattern string `json:"pattern"`
}

// Label renders the candidate's episode numbers as S01E02 or S01E02-E03.
func (c Candidate) Label() string {
	if len(c.Episodes) == 0 {
		return fmt.Sprintf("S%02d", c.Season)
	}
	label := fmt.Sprintf("S%02dE%02d", c.Season, c.Episodes[0])
	if len(c.Episodes) > 1 {
		label += fmt.Sprintf("-E%02d", c.Episodes[len(c.Episodes)-1])
	}
	return label
}

// extraEpisodePattern matches additional episode numbers directly following
// the primary match, e.g. the E02 in S01E01E02 or S01E01-E02.
var extraEpisodePattern = regexp.MustCompile(`^[-._ ]?e(\d{1,3})`)

// separatorPattern collapses filename separators into spaces during cleaning.
var separatorPattern = regexp.MustCompile(`[._-]+`)

// Parser extracts show title, season, and episode numbers from filenames
// using an ordered list of configured patterns. Pattern order is significant:
// the first full match wins.
type Parser struct {
	patterns []compiledPattern
	prefixes []*regexp.Regexp
	suffixes []*regexp.Regexp
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// New compiles the configured parsing rules.
func New(cfg config.Parsing) (*Parser, error) {
	p := &Parser{}
	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %d: %w", i, err)
		}
		if groups := re.NumSubexp(); groups != 2 && groups != 3 {
			return nil, fmt.Errorf("pattern %d: expected 2 or 3 capture groups, got %d", i, groups)
		}
		p.patterns = append(p.patterns, compiledPattern{source: pattern, re: re})
	}
	for i, pattern := range cfg.StripPrefixes {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile strip prefix %d: %w", i, err)
		}
		p.prefixes = append(p.prefixes, re)
	}
	for i, pattern := range cfg.StripSuffixes {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile strip suffix %d: %w", i, err)
		}
		p.suffixes = append(p.suffixes, re)
	}
	return p, nil
}

// Parse extracts a candidate from the filename. A filename no pattern
// recognizes, or one whose title portion cleans down to nothing, yields a
// terminal unparsable error: retrying cannot change the filename.
func (p *Parser) Parse(filename string) (Candidate, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	lowered := strings.ToLower(base)

	for _, pattern := range p.patterns {
		loc := pattern.re.FindStringSubmatchIndex(lowered)
		if loc == nil {
			continue
		}
		groups := pattern.re.NumSubexp()

		var titlePart string
		var seasonStr, episodeStr string
		if groups == 3 {
			titlePart = sliceGroup(lowered, loc, 1)
			seasonStr = sliceGroup(lowered, loc, 2)
			episodeStr = sliceGroup(lowered, loc, 3)
		} else {
			titlePart = lowered[:loc[0]]
			seasonStr = sliceGroup(lowered, loc, 1)
			episodeStr = sliceGroup(lowered, loc, 2)
		}

		season, err := strconv.Atoi(seasonStr)
		if err != nil {
			continue
		}
		episode, err := strconv.Atoi(episodeStr)
		if err != nil {
			continue
		}

		episodes := append([]int{episode}, p.extraEpisodes(lowered[loc[1]:])...)
		title := p.cleanTitle(titlePart)
		if title == "" {
			return Candidate{}, services.Wrap(services.ErrUnparsable, "parser", "clean title",
				fmt.Sprintf("no show title remains in %q after cleanup", filepath.Base(filename)), nil)
		}

		return Candidate{
			Title:    title,
			Season:   season,
			Episodes: episodes,
			Pattern:  pattern.source,
		}, nil
	}

	return Candidate{}, services.Wrap(services.ErrUnparsable, "parser", "match patterns",
		fmt.Sprintf("no configured pattern matches %q", filepath.Base(filename)), nil)
}

// extraEpisodes collects episode numbers chained directly after the primary
// match, supporting multi-episode files like show.s01e01e02.mkv.
func (p *Parser) extraEpisodes(rest string) []int {
	var extras []int
	for {
		match := extraEpisodePattern.FindStringSubmatch(rest)
		if match == nil {
			return extras
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			return extras
		}
		extras = append(extras, number)
		rest = rest[len(match[0]):]
	}
}

func (p *Parser) cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, re := range p.prefixes {
		title = re.ReplaceAllString(title, "")
	}
	for _, re := range p.suffixes {
		title = re.ReplaceAllString(title, "")
	}
	title = separatorPattern.ReplaceAllString(title, " ")
	return strings.Join(strings.Fields(title), " ")
}

func sliceGroup(s string, loc []int, group int) string {
	start, end := loc[2*group], loc[2*group+1]
	if start < 0 || end < 0 {
		return ""
	}
	return s[start:end]
}
