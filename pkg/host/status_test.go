package host

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-tools/gsm-host-go/pkg/errors"
)

func TestStatusTrackerStartsStopped(t *testing.T) {
	tracker := newStatusTracker("a1", nopLogger())
	assert.Equal(t, StatusStopped, tracker.Current())
	assert.Empty(t, tracker.History())
}

func TestStatusTrackerAllowedTransitions(t *testing.T) {
	tracker := newStatusTracker("a1", nopLogger())

	require.NoError(t, tracker.Transition(StatusStarting, "start", nil))
	require.NoError(t, tracker.Transition(StatusStarted, "start", nil))
	require.NoError(t, tracker.Transition(StatusStopping, "stop", nil))
	require.NoError(t, tracker.Transition(StatusStopped, "stop", nil))
	assert.Equal(t, StatusStopped, tracker.Current())
}

func TestStatusTrackerRejectsInvalidTransitions(t *testing.T) {
	tracker := newStatusTracker("a1", nopLogger())

	// Started is only reachable through starting.
	err := tracker.Transition(StatusStarted, "start", nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeValidation))

	// A rejected transition leaves the state and history untouched.
	assert.Equal(t, StatusStopped, tracker.Current())
	assert.Empty(t, tracker.History())
}

func TestStatusTrackerCrashEdges(t *testing.T) {
	tracker := newStatusTracker("a1", nopLogger())
	require.NoError(t, tracker.Transition(StatusStarting, "start", nil))
	require.NoError(t, tracker.Transition(StatusStarted, "start", nil))

	// Crash with auto-restart enabled.
	require.NoError(t, tracker.Transition(StatusRestarting, "auto_restart", fmt.Errorf("exit status 1")))
	require.NoError(t, tracker.Transition(StatusStarting, "auto_restart", nil))
	require.NoError(t, tracker.Transition(StatusStarted, "auto_restart", nil))

	// Crash with auto-restart disabled.
	require.NoError(t, tracker.Transition(StatusStopped, "exit", fmt.Errorf("exit status 137")))
}

func TestStatusTrackerHistory(t *testing.T) {
	tracker := newStatusTracker("a1", nopLogger())
	cause := fmt.Errorf("exec failed")

	require.NoError(t, tracker.Transition(StatusStarting, "start", nil))
	require.NoError(t, tracker.Transition(StatusStopped, "start", cause))

	history := tracker.History()
	require.Len(t, history, 2)
	assert.Equal(t, StatusStopped, history[0].From)
	assert.Equal(t, StatusStarting, history[0].To)
	assert.Equal(t, "start", history[0].Operation)
	assert.NoError(t, history[0].Err)
	assert.Equal(t, cause, history[1].Err)
	assert.False(t, history[1].Timestamp.IsZero())

	// History returns a copy.
	history[0].To = StatusDeleting
	assert.Equal(t, StatusStarting, tracker.History()[0].To)
}

func TestEveryStatusCanReachStopped(t *testing.T) {
	for from := range validStatusTransitions {
		if from == StatusStopped {
			continue
		}
		assert.True(t, transitionAllowed(from, StatusStopped) || transitionAllowed(from, StatusStarted),
			"status %s has no settling edge", from)
	}
}
