//go:build linux

package process

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"

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

// ApplyResources sets niceness and CPU affinity on a live process.
// Raising priority above normal requires elevated privileges; treated
// as best-effort by callers.
func ApplyResources(pid int, resources Resources, logger logging.Logger) error {
	if err := syscall.Setpriority(syscall.PRIO_PROCESS, pid, nicenessValue(resources.Priority)); err != nil {
		return fmt.Errorf("failed to set niceness on PID %d: %v", pid, err)
	}
	logger.Debugf("Niceness applied, pid: %d, priority: %d", pid, resources.Priority)

	if resources.CPUAffinity != 0 {
		var set unix.CPUSet
		for cpu := 0; cpu < 64; cpu++ {
			if resources.CPUAffinity&(1<<uint(cpu)) != 0 {
				set.Set(cpu)
			}
		}
		if err := unix.SchedSetaffinity(pid, &set); err != nil {
			return fmt.Errorf("failed to set CPU affinity on PID %d: %v", pid, err)
		}
		logger.Debugf("CPU affinity applied, pid: %d, mask: %#x", pid, resources.CPUAffinity)
	}

	return nil
}
