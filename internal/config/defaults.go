package config

const (
	defaultDataDir               = "~/.local/share/showrenamer"
	defaultLogDir                = "~/.local/share/showrenamer/logs"
	defaultCachePath             = "~/.cache/showrenamer/series_cache.json"
	defaultTVDBBaseURL           = "https://api4.thetvdb.com/v4"
	defaultTVDBLanguage          = "eng"
	defaultTVDBRequestTimeout    = 15
	defaultConfidenceThreshold   = 0.60
	defaultMode                  = string(ModeRenameAndMove)
	defaultStabilityPeriod       = 300
	defaultStabilityPollInterval = 30
	defaultQueuePollInterval     = 5
	defaultRetryInterval         = 86400
	defaultRetryPollInterval     = 60
	defaultRetryBudget           = 1
	defaultWorkers               = 2
	defaultCacheTTLDays          = 7
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

func defaultPatterns() []string {
	return []string{
		`^(.*?)\s*-\s*s(\d{1,2})e(\d{1,3})`,
		`[._ -]s(\d{1,2})[._ ]?e(\d{1,3})`,
		`[._ -](\d{1,2})x(\d{2,3})`,
		`season[._ ](\d{1,2})[._ ]episode[._ ](\d{1,3})`,
	}
}

func defaultStripPrefixes() []string {
	return []string{
		`^\[[^\]]*\]\s*`,
		`^\d{1,4}[a-z]{1,3}[-.]`,
		`^(?:tt|tv|show)[-.]`,
	}
}

func defaultStripSuffixes() []string {
	return []string{
		`[-. ](?:sd|hd|720p|1080p|2160p|4k|uhd)\b.*$`,
		`[-. ](?:x264|x265|h264|h265|hevc|xvid|divx)\b.*$`,
		`[-. ](?:aac|ac3|eac3|dts|dtshd|truehd|atmos)\b.*$`,
		`[-. ](?:bluray|bdrip|brrip|remux|web|webrip|web-dl|hdtv|dvdrip)\b.*$`,
		`[-. ](?:proper|internal|repack|extended|uncut)\b.*$`,
	}
}

func defaultVideoExtensions() []string {
	return []string{
		".mkv", ".avi", ".mp4", ".m4v", ".mov",
		".wmv", ".flv", ".mpg", ".mpeg", ".m2ts",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			CachePath: defaultCachePath,
		},
		TVDB: TVDB{
			BaseURL:        defaultTVDBBaseURL,
			Language:       defaultTVDBLanguage,
			RequestTimeout: defaultTVDBRequestTimeout,
		},
		Matching: Matching{
			ConfidenceThreshold: defaultConfidenceThreshold,
			SeriesMapping:       map[string]string{},
		},
		Parsing: Parsing{
			Patterns:      defaultPatterns(),
			StripPrefixes: defaultStripPrefixes(),
			StripSuffixes: defaultStripSuffixes(),
		},
		Processing: Processing{
			Mode:                  defaultMode,
			StabilityPeriod:       defaultStabilityPeriod,
			StabilityPollInterval: defaultStabilityPollInterval,
			QueuePollInterval:     defaultQueuePollInterval,
			RetryInterval:         defaultRetryInterval,
			RetryPollInterval:     defaultRetryPollInterval,
			RetryBudget:           defaultRetryBudget,
			Workers:               defaultWorkers,
			CacheTTLDays:          defaultCacheTTLDays,
			VideoExtensions:       defaultVideoExtensions(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
