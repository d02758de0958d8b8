package guard

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCommand_CapturesStdout(t *testing.T) {
	res := New(WithTimeout(5 * time.Second)).Run(context.Background(), Shell(t.TempDir(), "echo hello"))

	if !res.Succeeded {
		t.Fatalf("expected success, got %+v", res)
	}
	out, ok := res.Output.(CommandOutput)
	if !ok {
		t.Fatalf("output is %T, want CommandOutput", res.Output)
	}
	if out.Stdout != "hello" {
		t.Errorf("stdout = %q, want hello", out.Stdout)
	}
	if out.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", out.ExitCode)
	}
}

func TestCommand_ProcessFailure(t *testing.T) {
	res := New(WithTimeout(5 * time.Second)).Run(context.Background(),
		Shell(t.TempDir(), "echo broken >&2; exit 3"))

	if !res.Failed(KindProcessFailure) {
		t.Fatalf("expected process_failure, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "exited 3") {
		t.Errorf("message %q should include the exit code", res.ErrorMessage)
	}
	if !strings.Contains(res.ErrorMessage, "broken") {
		t.Errorf("message %q should include the diagnostic output", res.ErrorMessage)
	}
}

func TestCommand_NotFoundIncludesHint(t *testing.T) {
	res := New(WithTimeout(5 * time.Second)).Run(context.Background(),
		Command(t.TempDir(), "golangci-lint", "run"))

	// Only meaningful on machines without the tool; skip otherwise.
	if res.Succeeded || res.ErrorKind == KindProcessFailure {
		t.Skip("golangci-lint installed on this machine")
	}
	if !res.Failed(KindNotFound) {
		t.Fatalf("expected not_found, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "golangci-lint.run") {
		t.Errorf("message %q should carry the install hint", res.ErrorMessage)
	}
}

func TestCommand_MissingBinaryNotFound(t *testing.T) {
	res := New(WithTimeout(5 * time.Second)).Run(context.Background(),
		Command(t.TempDir(), "definitely-not-a-real-binary-xyz"))

	if !res.Failed(KindNotFound) {
		t.Fatalf("expected not_found, got %+v", res)
	}
}

func TestCommand_TimeoutKillsChild(t *testing.T) {
	start := time.Now()
	res := New(WithTimeout(100 * time.Millisecond)).Run(context.Background(),
		Shell(t.TempDir(), "sleep 30"))

	if !res.Failed(KindTimeout) {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("returned after %s, child not killed promptly", elapsed)
	}
}

func TestCommand_StderrFallsBackToStdout(t *testing.T) {
	res := New(WithTimeout(5 * time.Second)).Run(context.Background(),
		Shell(t.TempDir(), "echo only-stdout; exit 1"))

	if !res.Failed(KindProcessFailure) {
		t.Fatalf("expected process_failure, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "only-stdout") {
		t.Errorf("message %q should fall back to stdout when stderr is empty", res.ErrorMessage)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  short  "); got != "short" {
		t.Errorf("Truncate trimmed = %q, want short", got)
	}
	long := strings.Repeat("a", 300)
	got := Truncate(long)
	if len(got) != 200 {
		t.Errorf("len = %d, want 200", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string should end with ellipsis")
	}
}
