//go:build !windows

package process

import (
	"syscall"
)

// SendTerminationSignal sends SIGTERM to the process group on Unix
// systems. The negative PID addresses the whole process tree.
func SendTerminationSignal(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}
