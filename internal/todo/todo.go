// Package todo models the TODO list Claude Code maintains via its
// TodoWrite tool and computes which items completed since the previous
// hook invocation.
package todo

import (
	"fmt"

	"github.com/quaestor-dev/quaestor/internal/state"
)

// Status is the lifecycle state of a tracked item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Item is one tracked TODO. ID is unique within a single list; the host's
// TodoWrite payload carries no stable id, so when one is absent the item
// content serves as the id.
type Item struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  Status `json:"status"`
}

// FirstRunPolicy decides what happens on the very first observation of a
// list, when there is no previous snapshot to diff against.
type FirstRunPolicy string

const (
	// FirstRunCount treats items that are already completed on first
	// observation as newly completed. Side effects fire for them.
	FirstRunCount FirstRunPolicy = "count"
	// FirstRunIgnore records already-completed items silently.
	FirstRunIgnore FirstRunPolicy = "ignore"
)

// Diff compares the current item list against the previous snapshot.
// It returns the items that transitioned into completed since the last
// invocation, preserving their order in current, and the snapshot to
// persist. Ids missing from previous are implicitly pending; ids absent
// from current are dropped from the next snapshot so ghost entries never
// accumulate. Duplicate ids in current are the caller's bug.
func Diff(previous state.Snapshot, current []Item) (newlyCompleted []Item, next state.Snapshot) {
	next = make(state.Snapshot, len(current))
	for _, item := range current {
		next[item.ID] = string(item.Status)
		if item.Status != StatusCompleted {
			continue
		}
		if Status(previous[item.ID]) != StatusCompleted {
			newlyCompleted = append(newlyCompleted, item)
		}
	}
	return newlyCompleted, next
}

// FromToolInput extracts items from a TodoWrite tool_input payload:
// {"todos": [{"content": ..., "status": ..., "activeForm": ...}, ...]}.
// Entries without an explicit id fall back to their content. Entries whose
// id was already seen are dropped so Diff never sees duplicates.
func FromToolInput(toolInput map[string]any) ([]Item, error) {
	raw, ok := toolInput["todos"]
	if !ok {
		return nil, fmt.Errorf("tool_input has no todos field")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("todos is %T, want a list", raw)
	}

	seen := make(map[string]bool, len(list))
	items := make([]Item, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("todos[%d] is %T, want an object", i, entry)
		}
		item := Item{
			ID:      stringField(m, "id"),
			Content: stringField(m, "content"),
			Status:  Status(stringField(m, "status")),
		}
		if item.ID == "" {
			item.ID = item.Content
		}
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	return items, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
