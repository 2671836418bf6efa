package host

import (
	"context"
	"time"

	"github.com/game-tools/gsm-host-go/pkg/metrics"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

// watchLocked arms the exit observer on the entry's current process
// handle. Caller holds entry.opMutex. Each handle delivers exactly one
// exit notification, so one observer goroutine per live process.
func (h *Host) watchLocked(entry *serverEntry, handle process.Handle) {
	if handle == nil || entry.watched == handle {
		return
	}
	entry.watched = handle
	go h.observeExit(entry, handle)
}

// observeExit waits for the process to terminate, then decides between
// "deliberate stop" and "crash" under the entry's arbitration mutex.
// A status of stopping/killing/deleting/stopped means an in-flight
// operation owns the final transition and the observer stays out of
// the way.
func (h *Host) observeExit(entry *serverEntry, handle process.Handle) {
	<-handle.Exited()

	id := entry.server.Config().Basic.ID

	entry.opMutex.Lock()

	if entry.watched != handle {
		// A newer process already replaced this one.
		entry.opMutex.Unlock()
		return
	}
	entry.watched = nil

	switch entry.status.Current() {
	case StatusStopping, StatusKilling, StatusDeleting, StatusStopped:
		entry.opMutex.Unlock()
		h.logger.Debugf("Process exit during deliberate stop, id: %s, pid: %d", id, handle.Pid())
		return
	}

	if !entry.server.Config().Advanced.AutoRestart {
		h.logger.Infof("Process exited unexpectedly, auto-restart disabled, id: %s, pid: %d", id, handle.Pid())
		if err := entry.status.Transition(StatusStopped, "exit", handle.ExitErr()); err != nil {
			h.logger.Errorf("Failed to settle status after exit, id: %s, error: %v", id, err)
		}
		entry.opMutex.Unlock()
		return
	}

	h.logger.Warnf("Process exited unexpectedly, restarting in %v, id: %s, pid: %d",
		h.options.RestartGrace, id, handle.Pid())
	if err := entry.status.Transition(StatusRestarting, "auto_restart", handle.ExitErr()); err != nil {
		h.logger.Errorf("Failed to mark instance restarting, id: %s, error: %v", id, err)
		entry.opMutex.Unlock()
		return
	}
	entry.opMutex.Unlock()

	metrics.AutoRestartsTotal.Inc()

	// Grace delay between crash and restart, outside the lock so
	// explicit operations on other instances proceed freely.
	time.Sleep(h.options.RestartGrace)

	err := h.guarded(entry, "auto_restart", StatusStarting, StatusStarted, StatusStopped, func() error {
		return h.startLocked(context.Background(), entry, id)
	})
	if err != nil {
		h.logger.Errorf("Auto-restart failed, id: %s, error: %v", id, err)
		return
	}
	h.logger.Infof("Auto-restart succeeded, id: %s", id)
}
