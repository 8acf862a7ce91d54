package queue

import (
	"context"
	"fmt"
	"time"
)

// MarkStable promotes a settling file to stable so the processor can pick it
// up. Retrying files keep their status; the retry path re-enters processing
// directly.
func (s *Store) MarkStable(ctx context.Context, id int64) error {
	if err := s.execWithoutResult(
		ctx,
		`UPDATE tracked_files SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusStable,
		formatTime(time.Now().UTC()),
		id,
		StatusNew,
	); err != nil {
		return fmt.Errorf("mark stable: %w", err)
	}
	return nil
}

// ScheduleRetry parks a file in the failed state with a wake time. The
// attempts counter and failure context must already be set on the item.
func (s *Store) ScheduleRetry(ctx context.Context, item *Item, wakeAt time.Time) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	item.Status = StatusFailed
	wake := wakeAt.UTC()
	item.NextRetryAt = &wake
	return s.Update(ctx, item)
}

// ReleaseDueRetries moves failed files whose wake time has passed back into
// processing. Returns the number of released files.
func (s *Store) ReleaseDueRetries(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tracked_files
         SET status = ?, next_retry_at = NULL, updated_at = ?
         WHERE status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?`,
		StatusRetrying,
		formatTime(now),
		StatusFailed,
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("release due retries: %w", err)
	}
	return res.RowsAffected()
}

// ResetInFlight returns files stuck mid-processing to the stable state.
// Called on daemon startup after an unclean shutdown.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tracked_files SET status = ?, updated_at = ? WHERE status = ?`,
		StatusStable,
		formatTime(time.Now().UTC()),
		StatusMatched,
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight items: %w", err)
	}
	return res.RowsAffected()
}
