// Package errorlog records failed hook executions with deduplication, so
// a hook that breaks on every file edit does not flood the operator. The
// log is a capped JSONL file under the project's .quaestor directory.
package errorlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/quaestor-dev/quaestor/internal/state"
)

const (
	// FileName is the error log file under the state dir.
	FileName = "hook-errors.jsonl"

	// DefaultDedupWindow suppresses repeats of the same error.
	DefaultDedupWindow = 60 * time.Second

	// maxEntries caps the log so it never grows unbounded.
	maxEntries = 100
)

// Entry is one logged hook failure.
type Entry struct {
	Timestamp string `json:"ts"`
	HookKind  string `json:"hook_kind"`
	Command   string `json:"command"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Hash      string `json:"hash"`
	Count     int    `json:"count"`
}

// Log manages the dedup error log for one state directory. Unlike the
// snapshot store, the dedup counter needs an exclusive read-modify-write:
// two hook processes reporting the same failure concurrently must not
// lose a count, so the file is guarded by an advisory flock.
type Log struct {
	dir         string
	dedupWindow time.Duration
}

// New creates a Log rooted at the given state directory.
func New(stateDir string) *Log {
	return &Log{dir: stateDir, dedupWindow: DefaultDedupWindow}
}

func (l *Log) path() string     { return filepath.Join(l.dir, FileName) }
func (l *Log) lockPath() string { return l.path() + ".lock" }

// computeHash keys deduplication on the hook kind, command, and error
// kind; the message is excluded because timestamps and paths inside it
// vary per occurrence.
func computeHash(hookKind, command, errorKind string) string {
	h := sha256.New()
	h.Write([]byte(hookKind))
	h.Write([]byte("|"))
	h.Write([]byte(command))
	h.Write([]byte("|"))
	h.Write([]byte(errorKind))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Report logs a hook failure. Repeats within the dedup window bump the
// existing entry's count instead of appending. Returns true when a new
// entry was written.
func (l *Log) Report(hookKind, command, errorKind, message, sessionID string) (bool, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return false, fmt.Errorf("creating state dir: %w", err)
	}

	fl := flock.New(l.lockPath())
	if err := fl.Lock(); err != nil {
		return false, fmt.Errorf("locking error log: %w", err)
	}
	defer fl.Unlock()

	entries, err := l.read()
	if err != nil {
		// Unreadable log: start fresh rather than fail the hook.
		entries = nil
	}

	hash := computeHash(hookKind, command, errorKind)
	now := time.Now().UTC()
	cutoff := now.Add(-l.dedupWindow)

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Hash != hash {
			continue
		}
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err == nil && ts.After(cutoff) {
			entries[i].Count++
			entries[i].Timestamp = now.Format(time.RFC3339)
			return false, l.write(entries)
		}
		break
	}

	if len(message) > 500 {
		message = message[:500] + "..."
	}
	entries = append(entries, Entry{
		Timestamp: now.Format(time.RFC3339),
		HookKind:  hookKind,
		Command:   command,
		ErrorKind: errorKind,
		Message:   message,
		SessionID: sessionID,
		Hash:      hash,
		Count:     1,
	})
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	return true, l.write(entries)
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	fl := flock.New(l.lockPath())
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("locking error log: %w", err)
	}
	defer fl.Unlock()

	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	return reversed, nil
}

// Clear removes the log.
func (l *Log) Clear() error {
	if err := os.Remove(l.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Log) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Log) write(entries []Entry) error {
	var buf []byte
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return state.WriteFile(l.path(), buf, 0644)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
