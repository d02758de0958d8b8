package guard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandOutput is what a subprocess unit yields on success.
type CommandOutput struct {
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// installHints maps common hook dependencies to their typical install
// method, surfaced in NotFound messages so the operator knows the fix.
var installHints = map[string]string{
	"git":           "install via your package manager (e.g. apt install git, brew install git)",
	"gh":            "install via https://cli.github.com",
	"gofmt":         "ships with the Go toolchain (https://go.dev/dl)",
	"golangci-lint": "install via https://golangci-lint.run/usage/install",
	"ruff":          "install via pip install ruff or uv tool install ruff",
	"pytest":        "install via pip install pytest",
	"npx":           "ships with Node.js (https://nodejs.org)",
}

// Command returns a Unit that runs the named program with args in dir.
// The child is placed in its own process group and the whole group is
// killed when the deadline fires, so grandchildren cannot outlive the
// budget. Stdin is empty; programs that read it get EOF.
func Command(dir, name string, args ...string) Unit {
	return func(ctx context.Context) (any, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		cmd.Env = os.Environ()
		cmd.Stdin = strings.NewReader("")
		setProcessGroup(cmd)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		out := CommandOutput{
			Stdout: strings.TrimSpace(stdout.String()),
			Stderr: strings.TrimSpace(stderr.String()),
		}

		if err == nil {
			return out, nil
		}

		if errors.Is(err, exec.ErrNotFound) {
			msg := fmt.Sprintf("%s not found", name)
			if hint, ok := installHints[name]; ok {
				msg += "; " + hint
			}
			return nil, NewFailure(KindNotFound, "%s", msg)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &Failure{Kind: KindTimeout}
			}
			out.ExitCode = exitErr.ExitCode()
			diag := out.Stderr
			if diag == "" {
				diag = out.Stdout
			}
			return nil, NewFailure(KindProcessFailure, "%s exited %d: %s", name, out.ExitCode, diag)
		}

		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Failure{Kind: KindTimeout}
		}
		return nil, err
	}
}

// Shell returns a Unit that runs a shell command line via bash -c.
func Shell(dir, command string) Unit {
	return Command(dir, "bash", "-c", command)
}
