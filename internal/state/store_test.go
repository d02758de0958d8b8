package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ".quaestor", "todos_state.json"))

	snap := Snapshot{"a": "pending", "b": "completed"}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got["a"] != "pending" || got["b"] != "completed" {
		t.Errorf("Load = %v, want %v", got, snap)
	}
}

func TestStore_RoundTripEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	if err := store.Save(Snapshot{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load = %v, want empty", got)
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-written.json"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load = %v, want empty non-nil snapshot", got)
	}
	if store.Exists() {
		t.Errorf("Exists = true for never-written store")
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(path).Load()
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("err = %v, want ErrCorruptState", err)
	}
}

func TestStore_FailedSaveLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := NewStore(path)

	if err := store.Save(Snapshot{"a": "completed"}); err != nil {
		t.Fatalf("initial Save failed: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a crash between the temp write and the rename.
	rename = func(src, dst string) error { return errors.New("simulated crash") }
	t.Cleanup(func() { rename = os.Rename })

	if err := store.Save(Snapshot{"a": "pending", "b": "pending"}); err == nil {
		t.Fatal("expected Save to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("original file changed after failed save")
	}

	// Temp files must not accumulate.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want just the original state file", len(entries))
	}

	rename = os.Rename
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load after failed save: %v", err)
	}
	if got["a"] != "completed" || len(got) != 1 {
		t.Errorf("Load = %v, want last-known-good snapshot", got)
	}
}

func TestStore_SaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")

	if err := NewStore(path).Save(Snapshot{"x": "pending"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file missing: %v", err)
	}
}

func TestSnapshot_Clone(t *testing.T) {
	orig := Snapshot{"a": "pending"}
	c := orig.Clone()
	c["a"] = "completed"
	c["b"] = "pending"

	if orig["a"] != "pending" || len(orig) != 1 {
		t.Errorf("clone mutated the original: %v", orig)
	}
}
