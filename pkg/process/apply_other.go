//go:build !windows && !linux

package process

import (
	"fmt"
	"syscall"

	"github.com/game-tools/gsm-host-go/pkg/logging"
)

func nicenessValue(priority PriorityClass) int {
	switch priority {
	case PriorityIdle:
		return 19
	case PriorityBelowNormal:
		return 10
	case PriorityAboveNormal:
		return -5
	case PriorityHigh:
		return -10
	case PriorityRealtime:
		return -15
	default:
		return 0
	}
}

// ApplyResources sets niceness on a live process. CPU affinity has no
// portable equivalent here and is skipped.
func ApplyResources(pid int, resources Resources, logger logging.Logger) error {
	if err := syscall.Setpriority(syscall.PRIO_PROCESS, pid, nicenessValue(resources.Priority)); err != nil {
		return fmt.Errorf("failed to set niceness on PID %d: %v", pid, err)
	}
	if resources.CPUAffinity != 0 {
		logger.Debugf("CPU affinity not supported on this platform, pid: %d", pid)
	}
	return nil
}
