// Package events keeps an append-only audit feed of hook invocations.
// The feed is best-effort: failing to record an event never fails the
// hook that produced it.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileName is the audit feed file under the state dir.
const FileName = "events.jsonl"

// Record is one audited hook invocation.
type Record struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"ts"`
	Kind       string         `json:"kind"`
	Handler    string         `json:"handler"`
	SessionID  string         `json:"session_id,omitempty"`
	ExitCode   int            `json:"exit_code"`
	DurationMS int64          `json:"duration_ms"`
	Attempts   int            `json:"attempts,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Feed appends records to one audit file.
type Feed struct {
	dir string
}

// NewFeed creates a Feed rooted at the given state directory.
func NewFeed(stateDir string) *Feed {
	return &Feed{dir: stateDir}
}

func (f *Feed) path() string { return filepath.Join(f.dir, FileName) }

// Log appends a record, assigning id and timestamp. A single O_APPEND
// write keeps concurrent hook processes from interleaving lines.
func (f *Feed) Log(rec Record) error {
	rec.ID = uuid.NewString()
	rec.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')

	file, err := os.OpenFile(f.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening event feed: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. Malformed lines are
// skipped.
func (f *Feed) Recent(limit int) ([]Record, error) {
	data, err := os.ReadFile(f.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			if i > start {
				var rec Record
				if err := json.Unmarshal(data[start:i], &rec); err == nil {
					records = append(records, rec)
				}
			}
			start = i + 1
		}
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	reversed := make([]Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	return reversed, nil
}

// CompletionPayload describes newly completed TODO items for the feed.
func CompletionPayload(ids []string) map[string]any {
	return map[string]any{"newly_completed": ids}
}

// CommandPayload describes a guarded command run for the feed.
func CommandPayload(command, errorKind string) map[string]any {
	p := map[string]any{"command": command}
	if errorKind != "" {
		p["error_kind"] = errorKind
	}
	return p
}
