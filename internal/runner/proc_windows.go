//go:build windows

package runner

import (
	"os/exec"
	"strconv"
	"syscall"
)

const createNoWindow = 0x08000000

func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

// interruptGroup has no reliable console-signal equivalent for a detached
// child on Windows; fall back to terminating the tree.
func interruptGroup(pid int) error {
	return killGroup(pid)
}

func killGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}
