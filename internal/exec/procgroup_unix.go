//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs the shell in its own process group and makes context
// cancellation kill the whole group. Otherwise flow, as a child of the shell,
// would survive and hold the output pipes open.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
