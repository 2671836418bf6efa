//go:build windows

package process

import (
	"fmt"
	"sync"
	"syscall"
)

// Console operations are process-global on Windows; serialize them.
var consoleOperationLock sync.Mutex

// SendTerminationSignal sends a Ctrl-Break event to the target process
// group, the closest Windows equivalent of SIGTERM for console servers.
func SendTerminationSignal(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	consoleOperationLock.Lock()
	defer consoleOperationLock.Unlock()

	dll, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return fmt.Errorf("failed to load kernel32.dll: %v", err)
	}
	defer dll.Release()

	generateConsoleCtrlEvent, err := dll.FindProc("GenerateConsoleCtrlEvent")
	if err != nil {
		return err
	}

	result, _, err := generateConsoleCtrlEvent.Call(
		uintptr(syscall.CTRL_BREAK_EVENT),
		uintptr(pid),
	)
	if result == 0 {
		return fmt.Errorf("failed to send Ctrl+Break to PID %d: %v", pid, err)
	}
	return nil
}
