package respond

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/quaestor-dev/quaestor/internal/guard"
)

func TestEncode_BlockingFailure(t *testing.T) {
	res := guard.Result{
		ErrorKind:    guard.KindTimeout,
		ErrorMessage: "exceeded 55s budget",
		Attempts:     1,
		Duration:     55 * time.Second,
	}

	p, code := Encode("post-tool-use", res, Policy{BlockOnFailure: true})

	if code != ExitBlock {
		t.Errorf("exit = %d, want %d", code, ExitBlock)
	}
	if !p.Blocking {
		t.Errorf("payload not marked blocking")
	}
	if p.Error == "" {
		t.Errorf("blocking failure must carry a non-empty error")
	}
	if p.Meta == nil || p.Meta.Hook != "post-tool-use" {
		t.Errorf("meta = %+v", p.Meta)
	}
	if p.Meta.DurationMS != 55000 {
		t.Errorf("duration_ms = %d, want 55000", p.Meta.DurationMS)
	}
}

func TestEncode_NonBlockingSuccess(t *testing.T) {
	res := guard.Result{Succeeded: true, Output: map[string]any{"ok": true}, Attempts: 1}

	p, code := Encode("session-start", res, Policy{})

	if code != ExitContinue {
		t.Errorf("exit = %d, want %d", code, ExitContinue)
	}
	if p.Blocking {
		t.Errorf("success marked blocking")
	}
	if p.Error != "" {
		t.Errorf("success carries error %q", p.Error)
	}
	if p.Data == nil {
		t.Errorf("output not propagated to data")
	}
}

func TestEncode_BlockingSuccess(t *testing.T) {
	res := guard.Result{Succeeded: true, Attempts: 1}

	p, code := Encode("lint-gate", res, Policy{BlockOnSuccess: true})
	if code != ExitBlock || !p.Blocking {
		t.Errorf("exit = %d blocking = %v, want block", code, p.Blocking)
	}
}

func TestEncode_AdvisoryFailure(t *testing.T) {
	res := guard.Result{ErrorKind: guard.KindProcessFailure, ErrorMessage: "lint exited 1"}

	p, code := Encode("lint", res, Policy{BlockOnFailure: false})
	if code != ExitContinue {
		t.Errorf("exit = %d, want %d (advisory)", code, ExitContinue)
	}
	if p.Error == "" {
		t.Errorf("advisory failure should still report the error")
	}
	if p.Blocking {
		t.Errorf("advisory failure marked blocking")
	}
}

func TestEncode_EmptyMessageFallsBackToKind(t *testing.T) {
	res := guard.Result{ErrorKind: guard.KindIOFailure}
	p, _ := Encode("x", res, Policy{BlockOnFailure: true})
	if p.Error != "io_failure" {
		t.Errorf("error = %q, want kind fallback", p.Error)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	p := Payload{
		Message: "done",
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:      "PreToolUse",
			PermissionDecision: "allow",
		},
	}
	if err := Write(&buf, p); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	hso, ok := decoded["hookSpecificOutput"].(map[string]any)
	if !ok {
		t.Fatalf("hookSpecificOutput missing: %v", decoded)
	}
	if hso["permissionDecision"] != "allow" {
		t.Errorf("permissionDecision = %v", hso["permissionDecision"])
	}
}
