//go:build windows

package crawler

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}

// interruptProcess kills the process; Windows has no SIGINT for children.
func interruptProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func terminateProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
