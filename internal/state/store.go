// Package state persists small per-domain snapshots between hook
// invocations. Writes are atomic (temp file plus rename) so a crash or a
// concurrent reader never observes a half-written file. Two processes
// racing on the same snapshot resolve last-writer-wins, which is fine:
// the snapshot backs best-effort diffing, it is not a source of truth.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorruptState marks a snapshot file that exists but cannot be parsed.
// Callers should degrade to an empty snapshot and log, not crash; one bad
// file costs one cycle of diff accuracy.
var ErrCorruptState = errors.New("corrupt state file")

// Snapshot maps tracked item ids to their last observed status.
type Snapshot map[string]string

// Clone returns a copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Store reads and writes one snapshot file. The path is injected, never
// discovered, so tests can point it anywhere.
type Store struct {
	path string
}

// NewStore creates a Store for the given snapshot file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Exists reports whether a snapshot has ever been saved.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load returns the persisted snapshot. A missing file is an empty
// snapshot; unparseable content returns ErrCorruptState.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// Save atomically replaces the snapshot file. On any failure the previous
// file is left untouched and the temp file is removed.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return WriteFile(s.path, data, 0644)
}

// rename is swappable so tests can simulate a crash between the temp
// write and the rename.
var rename = os.Rename

// WriteFile writes data to path atomically: the bytes land in a unique
// temp sibling first, then a single rename moves them into place. Rename
// is atomic on POSIX, so readers see either the old file or the new one,
// never a mix.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	tmpPath = ""
	return nil
}
