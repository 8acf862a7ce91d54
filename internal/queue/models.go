package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked file.
type Status string

const (
	// StatusNew marks a file that has been observed but is still settling.
	StatusNew Status = "new"
	// StatusStable marks a file whose size and mtime held for the configured
	// quiet period; it is ready for identification.
	StatusStable Status = "stable"
	// StatusMatched marks a file with an accepted episode match, awaiting
	// rename execution.
	StatusMatched Status = "matched"
	// StatusApplied marks a successfully renamed file. Terminal; rows in this
	// state are removed once audited.
	StatusApplied Status = "applied"
	// StatusFailed marks a file that failed with a retryable error and is
	// waiting for its retry window.
	StatusFailed Status = "failed"
	// StatusRetrying marks a file the retry scheduler released for one more
	// pass through the pipeline.
	StatusRetrying Status = "retrying"
)

var allStatuses = []Status{
	StatusNew,
	StatusStable,
	StatusMatched,
	StatusApplied,
	StatusFailed,
	StatusRetrying,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(value string) bool {
	_, ok := statusSet[Status(strings.TrimSpace(strings.ToLower(value)))]
	return ok
}

// readyStatuses are the states the processor may pick work from.
var readyStatuses = []Status{StatusStable, StatusRetrying}

// Item represents one tracked filesystem entry moving through the pipeline.
type Item struct {
	ID            int64
	Path          string
	Status        Status
	FirstSeen     time.Time
	LastSize      int64
	LastMTime     time.Time
	LastChange    time.Time
	CandidateJSON string
	MatchJSON     string
	Attempts      int
	FailureKind   string
	LastError     string
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ready reports whether the item is eligible for pipeline processing.
func (i *Item) Ready() bool {
	return i != nil && (i.Status == StatusStable || i.Status == StatusRetrying)
}

// Stats aggregates tracked-file counts per lifecycle state.
type Stats struct {
	Total    int
	ByStatus map[Status]int
}
