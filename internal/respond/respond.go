// Package respond shapes hook outcomes into the JSON payload and exit
// code Claude Code understands. Exit 0 means continue (possibly with an
// advisory message), exit 2 means block the current action and surface
// the message. That convention is the host's, not ours; everything inside
// this repo is a typed guard.Result until it crosses this boundary.
package respond

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quaestor-dev/quaestor/internal/guard"
)

// Host exit codes.
const (
	ExitContinue = 0
	ExitBlock    = 2
)

// Meta describes the invocation that produced a payload.
type Meta struct {
	Hook       string `json:"hook"`
	DurationMS int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// Payload is the JSON object written to stdout for the host.
type Payload struct {
	Message       string `json:"message,omitempty"`
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
	Blocking      bool   `json:"blocking,omitempty"`
	Meta          *Meta  `json:"meta,omitempty"`
	SystemMessage string `json:"systemMessage,omitempty"`

	// HookSpecificOutput carries the host's PreToolUse permission
	// decision shape when a hook wants to allow or deny a tool call.
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput mirrors the host's permission-decision structure.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string `json:"additionalContext,omitempty"`
}

// Policy is the per-hook mapping from outcome to host behavior. It is
// caller-configured; there is no universal rule for whether a failure
// blocks.
type Policy struct {
	// BlockOnFailure maps failures to exit 2. Otherwise failures are
	// advisory: logged, reported in the payload, exit 0.
	BlockOnFailure bool
	// BlockOnSuccess maps even a successful outcome to exit 2, for hooks
	// whose whole point is to halt the host (e.g. a lint gate that found
	// findings but ran fine).
	BlockOnSuccess bool
}

// Encode maps a guard result and policy to the host payload and exit
// code. Pure function: no I/O, no clock reads beyond the timestamp.
func Encode(hookName string, res guard.Result, pol Policy) (Payload, int) {
	p := Payload{
		Meta: &Meta{
			Hook:       hookName,
			DurationMS: res.Duration.Milliseconds(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}

	if res.Succeeded {
		p.Data = res.Output
		p.Message = fmt.Sprintf("%s completed", hookName)
		if pol.BlockOnSuccess {
			p.Blocking = true
			return p, ExitBlock
		}
		return p, ExitContinue
	}

	p.Error = res.ErrorMessage
	if p.Error == "" {
		p.Error = string(res.ErrorKind)
	}
	if pol.BlockOnFailure {
		p.Blocking = true
		return p, ExitBlock
	}
	return p, ExitContinue
}

// Write marshals the payload to w as a single JSON object.
func Write(w io.Writer, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding hook response: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing hook response: %w", err)
	}
	return nil
}
