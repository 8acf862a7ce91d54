package queue

import (
	"database/sql"
	"time"
)

const itemColumns = "id, path, status, first_seen, last_size, last_mtime, last_change, candidate_json, match_json, attempts, failure_kind, last_error, next_retry_at, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		path          string
		statusStr     string
		firstSeenRaw  sql.NullString
		lastSize      sql.NullInt64
		lastMTimeRaw  sql.NullString
		lastChangeRaw sql.NullString
		candidate     sql.NullString
		match         sql.NullString
		attempts      sql.NullInt64
		failureKind   sql.NullString
		lastError     sql.NullString
		nextRetryRaw  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&path,
		&statusStr,
		&firstSeenRaw,
		&lastSize,
		&lastMTimeRaw,
		&lastChangeRaw,
		&candidate,
		&match,
		&attempts,
		&failureKind,
		&lastError,
		&nextRetryRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		Path:          path,
		Status:        Status(statusStr),
		FirstSeen:     parseTime(firstSeenRaw),
		LastSize:      lastSize.Int64,
		LastMTime:     parseTime(lastMTimeRaw),
		LastChange:    parseTime(lastChangeRaw),
		CandidateJSON: candidate.String,
		MatchJSON:     match.String,
		Attempts:      int(attempts.Int64),
		FailureKind:   failureKind.String,
		LastError:     lastError.String,
		CreatedAt:     parseTime(createdRaw),
		UpdatedAt:     parseTime(updatedRaw),
	}
	if nextRetryRaw.Valid {
		if ts := parseTime(nextRetryRaw); !ts.IsZero() {
			item.NextRetryAt = &ts
		}
	}
	return item, nil
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func nullableTime(ts *time.Time) any {
	if ts == nil || ts.IsZero() {
		return nil
	}
	return formatTime(*ts)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
