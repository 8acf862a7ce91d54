package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail.
const (
	ActionApplied = "applied"
	ActionDryRun  = "dry_run"
	ActionFailed  = "failed"
	ActionUndone  = "undone"
)

// Record is one line of the audit trail. Every terminal outcome of a
// tracked file produces exactly one record.
type Record struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	Series      string    `json:"series,omitempty"`
	Season      int       `json:"season,omitempty"`
	Episodes    []int     `json:"episodes,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// Trail is an append-only JSONL audit log. Records are flushed per append
// so a crash loses at most the record being written.
type Trail struct {
	path string
	mu   sync.Mutex
}

// New creates a trail backed by the JSONL file at path. The file is created
// lazily on first append.
func New(path string) *Trail {
	return &Trail{path: path}
}

// Path returns the backing file path.
func (t *Trail) Path() string {
	return t.path
}

// Append writes one record. A zero ID or timestamp is filled in.
func (t *Trail) Append(record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(record)
	if err != nil {
		return Record{}, fmt.Errorf("marshal audit record: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return Record{}, fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("append audit record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return Record{}, fmt.Errorf("sync audit log: %w", err)
	}
	return record, nil
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything.
func (t *Trail) Recent(limit int) ([]Record, error) {
	records, err := t.readAll()
	if err != nil {
		return nil, err
	}

	// Reverse into newest-first order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ForPath returns every record whose source or destination matches path,
// newest first.
func (t *Trail) ForPath(path string) ([]Record, error) {
	records, err := t.Recent(0)
	if err != nil {
		return nil, err
	}
	var matched []Record
	for _, record := range records {
		if record.Source == path || record.Destination == path {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// LastApplied returns the most recent applied record, or nil when no rename
// has been applied yet.
func (t *Trail) LastApplied() (*Record, error) {
	records, err := t.Recent(0)
	if err != nil {
		return nil, err
	}
	for i := range records {
		record := records[i]
		if record.Action != ActionApplied {
			continue
		}
		if t.undoneLater(records[:i], record.ID) {
			continue
		}
		return &record, nil
	}
	return nil, nil
}

// undoneLater reports whether any newer record undoes the record with id.
// newer holds records more recent than the candidate, newest first.
func (t *Trail) undoneLater(newer []Record, id string) bool {
	for _, record := range newer {
		if record.Action == ActionUndone && record.Reason == id {
			return true
		}
	}
	return false
}

func (t *Trail) readAll() ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			// A torn final line from a crash is skipped, not fatal.
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return records, nil
}
