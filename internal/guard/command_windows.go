//go:build windows

package guard

import (
	"os/exec"
	"time"
)

// setProcessGroup is a no-op on Windows beyond bounding the post-cancel
// wait; exec.CommandContext's default kill covers the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}
