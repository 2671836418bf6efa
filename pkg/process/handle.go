package process

import (
	"os"
	"os/exec"
)

// Handle is the exit-notification contract for one live OS process.
// Exited() is closed after the process terminates for any reason, so
// every observer sees exactly one notification.
type Handle interface {
	Pid() int

	// Exited is closed once the process has terminated.
	Exited() <-chan struct{}

	// ExitErr reports the wait error; only meaningful after Exited is
	// closed.
	ExitErr() error

	// Alive reports whether the process has not yet been observed to
	// exit.
	Alive() bool

	// Terminate requests OS-level termination of the process tree.
	// On Unix this is SIGTERM to the process group, on Windows a
	// Ctrl-Break event.
	Terminate() error

	// Kill forcibly kills the process (SIGKILL / TerminateProcess).
	Kill() error
}

type osHandle struct {
	pid     int
	proc    *os.Process
	done    chan struct{}
	exitErr error
}

func newOSHandle(proc *os.Process, wait func() error) *osHandle {
	h := &osHandle{
		pid:  proc.Pid,
		proc: proc,
		done: make(chan struct{}),
	}
	go func() {
		h.exitErr = wait()
		close(h.done)
	}()
	return h
}

// NewHandle wraps an already-started exec.Cmd. The handle takes over
// waiting on the command; callers must not call cmd.Wait themselves.
func NewHandle(cmd *exec.Cmd) Handle {
	return newOSHandle(cmd.Process, cmd.Wait)
}

// NewHandleFromProcess wraps a bare os.Process, e.g. one attached to
// rather than spawned.
func NewHandleFromProcess(proc *os.Process) Handle {
	return newOSHandle(proc, func() error {
		_, err := proc.Wait()
		return err
	})
}

func (h *osHandle) Pid() int {
	return h.pid
}

func (h *osHandle) Exited() <-chan struct{} {
	return h.done
}

func (h *osHandle) ExitErr() error {
	select {
	case <-h.done:
		return h.exitErr
	default:
		return nil
	}
}

func (h *osHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *osHandle) Terminate() error {
	return SendTerminationSignal(h.pid)
}

func (h *osHandle) Kill() error {
	return h.proc.Kill()
}
