//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr places the child in its own process group so signals reach
// the whole build tree, not just the Eclipse launcher.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGINT)
}

func killGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
