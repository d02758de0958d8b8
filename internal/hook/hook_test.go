package hook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDecode_PostToolUse(t *testing.T) {
	payload := `{
		"session_id": "abc-123",
		"transcript_path": "/tmp/transcript.jsonl",
		"cwd": "/work/project",
		"hook_event_name": "PostToolUse",
		"tool_name": "TodoWrite",
		"tool_input": {"todos": [{"content": "x", "status": "completed"}]},
		"tool_response": {"success": true}
	}`

	in, err := Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if in.Kind() != KindPostToolUse {
		t.Errorf("Kind = %s, want PostToolUse", in.Kind())
	}
	if !in.Kind().IsValid() {
		t.Errorf("PostToolUse should be valid")
	}
	if in.SessionID != "abc-123" {
		t.Errorf("SessionID = %q", in.SessionID)
	}
	if !in.IsTodoWrite() {
		t.Errorf("IsTodoWrite = false, want true")
	}
	if in.ReceivedAt.IsZero() {
		t.Errorf("ReceivedAt not set")
	}
	if _, ok := in.Payload["tool_response"]; !ok {
		t.Errorf("raw payload not retained")
	}
}

func TestDecode_UnknownKindPassesThrough(t *testing.T) {
	in, err := Decode(strings.NewReader(`{"hook_event_name": "FutureEvent"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if in.Kind() != "FutureEvent" {
		t.Errorf("Kind = %s", in.Kind())
	}
	if in.Kind().IsValid() {
		t.Errorf("unknown kind reported valid")
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "nope"},
		{"missing event name", `{"session_id": "x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tc.input)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	root := t.TempDir()

	t.Run("relative resolves under root", func(t *testing.T) {
		got, err := CleanPath(root, "src/main.go")
		if err != nil {
			t.Fatalf("CleanPath failed: %v", err)
		}
		if got != filepath.Join(root, "src", "main.go") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("absolute inside root", func(t *testing.T) {
		want := filepath.Join(root, "a.txt")
		got, err := CleanPath(root, want)
		if err != nil {
			t.Fatalf("CleanPath failed: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		if _, err := CleanPath(root, "../../etc/passwd"); err == nil {
			t.Errorf("traversal accepted")
		}
	})

	t.Run("absolute outside root rejected", func(t *testing.T) {
		if _, err := CleanPath(root, "/etc/passwd"); err == nil {
			t.Errorf("outside path accepted")
		}
	})

	t.Run("NUL byte rejected", func(t *testing.T) {
		if _, err := CleanPath(root, "a\x00b"); err == nil {
			t.Errorf("NUL byte accepted")
		}
	})

	t.Run("empty rejected", func(t *testing.T) {
		if _, err := CleanPath(root, ""); err == nil {
			t.Errorf("empty path accepted")
		}
	})
}

func TestInput_FilePath(t *testing.T) {
	root := t.TempDir()

	in := &Input{ToolInput: map[string]any{"file_path": "pkg/a.go"}}
	got, err := in.FilePath(root)
	if err != nil {
		t.Fatalf("FilePath failed: %v", err)
	}
	if got != filepath.Join(root, "pkg", "a.go") {
		t.Errorf("got %q", got)
	}

	in = &Input{}
	got, err = in.FilePath(root)
	if err != nil || got != "" {
		t.Errorf("absent field: got %q, %v; want empty, nil", got, err)
	}
}
