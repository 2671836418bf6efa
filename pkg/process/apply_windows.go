//go:build windows

package process

import (
	"fmt"
	"syscall"

	"github.com/game-tools/gsm-host-go/pkg/logging"
)

const (
	idlePriorityClass        = 0x00000040
	belowNormalPriorityClass = 0x00004000
	normalPriorityClass      = 0x00000020
	aboveNormalPriorityClass = 0x00008000
	highPriorityClass        = 0x00000080
	realtimePriorityClass    = 0x00000100

	processSetInformation = 0x0200
	processSetQuota       = 0x0100
)

func priorityClassValue(priority PriorityClass) uint32 {
	switch priority {
	case PriorityIdle:
		return idlePriorityClass
	case PriorityBelowNormal:
		return belowNormalPriorityClass
	case PriorityAboveNormal:
		return aboveNormalPriorityClass
	case PriorityHigh:
		return highPriorityClass
	case PriorityRealtime:
		return realtimePriorityClass
	default:
		return normalPriorityClass
	}
}

// ApplyResources sets the priority class and CPU affinity mask on a live
// process. Best-effort: failures are reported but the process keeps
// running with default scheduling.
func ApplyResources(pid int, resources Resources, logger logging.Logger) error {
	handle, err := syscall.OpenProcess(processSetInformation|processSetQuota, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("failed to open process %d: %v", pid, err)
	}
	defer syscall.CloseHandle(handle)

	dll, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return fmt.Errorf("failed to load kernel32.dll: %v", err)
	}
	defer dll.Release()

	setPriorityClass, err := dll.FindProc("SetPriorityClass")
	if err != nil {
		return err
	}
	if result, _, callErr := setPriorityClass.Call(uintptr(handle), uintptr(priorityClassValue(resources.Priority))); result == 0 {
		return fmt.Errorf("failed to set priority class on PID %d: %v", pid, callErr)
	}
	logger.Debugf("Priority class applied, pid: %d, priority: %d", pid, resources.Priority)

	if resources.CPUAffinity != 0 {
		setProcessAffinityMask, err := dll.FindProc("SetProcessAffinityMask")
		if err != nil {
			return err
		}
		if result, _, callErr := setProcessAffinityMask.Call(uintptr(handle), uintptr(resources.CPUAffinity)); result == 0 {
			return fmt.Errorf("failed to set affinity mask on PID %d: %v", pid, callErr)
		}
		logger.Debugf("CPU affinity applied, pid: %d, mask: %#x", pid, resources.CPUAffinity)
	}

	return nil
}
