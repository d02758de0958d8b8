// Package hook parses the JSON events Claude Code delivers on stdin when
// it invokes a hook process.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Kind identifies a Claude Code hook event type.
type Kind string

const (
	KindSessionStart     Kind = "SessionStart"
	KindPreCompact       Kind = "PreCompact"
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindPreToolUse       Kind = "PreToolUse"
	KindPostToolUse      Kind = "PostToolUse"
	KindNotification     Kind = "Notification"
	KindSubagentStop     Kind = "SubagentStop"
	KindStop             Kind = "Stop"
)

// AllKinds returns the known hook event kinds in execution order.
func AllKinds() []Kind {
	return []Kind{
		KindSessionStart,
		KindPreCompact,
		KindUserPromptSubmit,
		KindPreToolUse,
		KindPostToolUse,
		KindNotification,
		KindSubagentStop,
		KindStop,
	}
}

// IsValid reports whether the kind is a known Claude Code hook event.
func (k Kind) IsValid() bool {
	for _, valid := range AllKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// ToolNameTodoWrite is the host tool that rewrites the session TODO list.
const ToolNameTodoWrite = "TodoWrite"

// Input is the standard hook payload Claude Code writes to stdin. The
// typed fields cover the stable part of the contract; Payload keeps the
// full decoded object for kind-specific fields.
type Input struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path"`
	CWD            string         `json:"cwd"`
	HookEventName  string         `json:"hook_event_name"`
	ToolName       string         `json:"tool_name,omitempty"`
	ToolInput      map[string]any `json:"tool_input,omitempty"`
	ToolResponse   any            `json:"tool_response,omitempty"`
	Prompt         string         `json:"prompt,omitempty"`

	// Payload is the raw decoded event object, kind-dependent.
	Payload map[string]any `json:"-"`
	// ReceivedAt is when this process read the event.
	ReceivedAt time.Time `json:"-"`
}

// Kind returns the event kind tag.
func (in *Input) Kind() Kind { return Kind(in.HookEventName) }

// IsTodoWrite reports whether this event carries a TodoWrite tool call.
func (in *Input) IsTodoWrite() bool {
	return in.ToolName == ToolNameTodoWrite && in.ToolInput != nil
}

// Decode reads one JSON event object from r. The event is constructed
// once per invocation and read-only afterward.
func Decode(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading hook input: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty hook input")
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing hook input: %w", err)
	}
	if err := json.Unmarshal(data, &in.Payload); err != nil {
		return nil, fmt.Errorf("parsing hook input: %w", err)
	}
	if in.HookEventName == "" {
		return nil, fmt.Errorf("hook input missing hook_event_name")
	}
	in.ReceivedAt = time.Now().UTC()
	return &in, nil
}
