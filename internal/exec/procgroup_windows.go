//go:build windows

package exec

import "os/exec"

// killProcessGroup keeps the default cancellation (kill the direct child).
func killProcessGroup(cmd *exec.Cmd) {}
