package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

// Status represents where an instance is in its lifecycle.
type Status string

const (
	// StatusStopped is the initial and idle state.
	StatusStopped Status = "stopped"

	StatusCreating      Status = "creating"
	StatusUpdating      Status = "updating"
	StatusStarting      Status = "starting"
	StatusStarted       Status = "started"
	StatusStopping      Status = "stopping"
	StatusRestarting    Status = "restarting"
	StatusKilling       Status = "killing"
	StatusInstallingMod Status = "installing_mod"
	StatusDeleting      Status = "deleting"
)

// validStatusTransitions defines the lifecycle state machine. Every
// mutating operation moves through its in-progress state and settles in
// the success or failure state; the exit observer accounts for the
// crash edges out of started.
var validStatusTransitions = map[Status][]Status{
	StatusStopped: {
		StatusCreating,      // create
		StatusUpdating,      // update
		StatusStarting,      // start
		StatusKilling,       // kill (confirms a process that should be gone)
		StatusInstallingMod, // install mod
		StatusDeleting,      // delete
	},
	StatusCreating: {
		StatusStopped, // create success or failure
	},
	StatusUpdating: {
		StatusStopped, // update success or failure
	},
	StatusStarting: {
		StatusStarted, // start success
		StatusStopped, // start failure
	},
	StatusStarted: {
		StatusStopping,   // stop
		StatusKilling,    // kill
		StatusRestarting, // crash with auto-restart enabled
		StatusStopped,    // crash with auto-restart disabled
	},
	StatusStopping: {
		StatusStopped, // stop success
		StatusStarted, // stop failure
	},
	StatusRestarting: {
		StatusStarting, // auto-restart after the grace delay
		StatusStopped,  // auto-restart abandoned
	},
	StatusKilling: {
		StatusStopped, // termination requested; confirmed or not
	},
	StatusInstallingMod: {
		StatusStopped, // install success or failure
	},
	StatusDeleting: {
		StatusStopped, // delete failure; success removes the instance
	},
}

// StatusTransition records one state change with its triggering
// operation.
type StatusTransition struct {
	From      Status
	To        Status
	Operation string
	Timestamp time.Time
	Err       error
}

// statusTracker holds one instance's status and validates every
// transition against the lifecycle state machine.
type statusTracker struct {
	id          string
	mutex       sync.RWMutex
	current     Status
	transitions []StatusTransition
	logger      logging.Logger
}

func newStatusTracker(id string, logger logging.Logger) *statusTracker {
	return &statusTracker{
		id:      id,
		current: StatusStopped,
		logger:  logger,
	}
}

func (t *statusTracker) Current() Status {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.current
}

// Transition moves to a new status, failing on edges the state machine
// does not define.
func (t *statusTracker) Transition(to Status, operation string, cause error) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	from := t.current
	if !transitionAllowed(from, to) {
		return errors.NewValidationError(
			fmt.Sprintf("invalid status transition from %s to %s for operation %s", from, to, operation),
			nil,
		).WithContext("id", t.id).WithContext("current_status", string(from)).WithContext("target_status", string(to))
	}

	t.transitions = append(t.transitions, StatusTransition{
		From:      from,
		To:        to,
		Operation: operation,
		Timestamp: time.Now(),
		Err:       cause,
	})
	t.current = to

	if cause != nil {
		t.logger.Warnf("Status transition after failure, id: %s, %s->%s, operation: %s, error: %v",
			t.id, from, to, operation, cause)
	} else {
		t.logger.Infof("Status transition, id: %s, %s->%s, operation: %s", t.id, from, to, operation)
	}

	return nil
}

// History returns a copy of the recorded transitions.
func (t *statusTracker) History() []StatusTransition {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	history := make([]StatusTransition, len(t.transitions))
	copy(history, t.transitions)
	return history
}

func transitionAllowed(from, to Status) bool {
	for _, valid := range validStatusTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}
