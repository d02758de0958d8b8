//go:build unix

package guard

import (
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group and arranges for
// the whole group to be killed on context cancellation. Without this, a
// hook command that forks (git spawning an editor, a test runner spawning
// workers) leaves grandchildren running past the deadline.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	// Bound the post-kill wait in case the group kill races process exit.
	cmd.WaitDelay = 2 * time.Second
}
