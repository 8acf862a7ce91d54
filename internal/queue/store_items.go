package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Observe records a filesystem observation for path, inserting a new tracked
// file on first sight. When size or mtime differ from the stored values the
// change clock resets. Returns the up-to-date item.
func (s *Store) Observe(ctx context.Context, path string, size int64, mtime, now time.Time) (*Item, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("path is required")
	}

	existing, err := s.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		timestamp := formatTime(now)
		_, err := s.execWithRetry(
			ctx,
			`INSERT INTO tracked_files (
                path, status, first_seen, last_size, last_mtime, last_change,
                attempts, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			path,
			StatusNew,
			timestamp,
			size,
			formatTime(mtime),
			timestamp,
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert tracked file: %w", err)
		}
		return s.GetByPath(ctx, path)
	}

	changed := existing.LastSize != size || !existing.LastMTime.Equal(mtime)
	if !changed {
		return existing, nil
	}

	// A change while the file was waiting for processing restarts stability
	// detection from scratch.
	status := existing.Status
	if status == StatusStable {
		status = StatusNew
	}
	if err := s.execWithoutResult(
		ctx,
		`UPDATE tracked_files
         SET last_size = ?, last_mtime = ?, last_change = ?, status = ?, updated_at = ?
         WHERE id = ?`,
		size,
		formatTime(mtime),
		formatTime(now),
		status,
		formatTime(now),
		existing.ID,
	); err != nil {
		return nil, fmt.Errorf("update observation: %w", err)
	}
	return s.GetByPath(ctx, path)
}

// GetByID fetches a tracked file by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM tracked_files WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByPath fetches a tracked file by filesystem path.
func (s *Store) GetByPath(ctx context.Context, path string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM tracked_files WHERE path = ?`, path)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by path: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing tracked file.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResult(
		ctx,
		`UPDATE tracked_files
         SET status = ?, last_size = ?, last_mtime = ?, last_change = ?,
             candidate_json = ?, match_json = ?, attempts = ?, failure_kind = ?,
             last_error = ?, next_retry_at = ?, updated_at = ?
         WHERE id = ?`,
		item.Status,
		item.LastSize,
		formatTime(item.LastMTime),
		formatTime(item.LastChange),
		nullableString(item.CandidateJSON),
		nullableString(item.MatchJSON),
		item.Attempts,
		nullableString(item.FailureKind),
		nullableString(item.LastError),
		nullableTime(item.NextRetryAt),
		formatTime(item.UpdatedAt),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Remove deletes a tracked file row, ending active tracking.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.execWithoutResult(ctx, `DELETE FROM tracked_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// ListByStatus returns tracked files in the given states ordered by last
// update, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + itemColumns + ` FROM tracked_files WHERE status IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY updated_at ASC, id ASC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListReady returns files eligible for pipeline processing.
func (s *Store) ListReady(ctx context.Context) ([]*Item, error) {
	return s.ListByStatus(ctx, readyStatuses...)
}

// ListAll returns every tracked file ordered by first observation.
func (s *Store) ListAll(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM tracked_files ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats aggregates tracked-file counts per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM tracked_files GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[Status]int, len(allStatuses))}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func (s *Store) execWithoutResult(ctx context.Context, query string, args ...any) error {
	_, err := s.execWithRetry(ctx, query, args...)
	return err
}
