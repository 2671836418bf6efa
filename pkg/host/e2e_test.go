//go:build !windows

package host

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/gameserver/genericsrv"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

func newGenericHost(t *testing.T) *Host {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this system")
	}

	registry := gameserver.NewTypeRegistry()
	require.NoError(t, genericsrv.Register(registry, nopLogger()))

	h, err := NewHost(Options{
		RootDir:      t.TempDir(),
		RestartGrace: 100 * time.Millisecond,
	}, registry, nopLogger())
	require.NoError(t, err)
	return h
}

func newSleepServer(h *Host, id string, autoRestart bool) *genericsrv.Server {
	basic := h.NewDefaultConfig(id)
	return genericsrv.NewWithDocument(genericsrv.Document{
		Config: gameserver.Config{
			Basic:    basic,
			Advanced: gameserver.AdvancedConfig{AutoRestart: autoRestart},
		},
		Execution: process.ExecutionConfig{
			ExecutablePath: "/bin/sh",
			Args:           []string{"-c", "sleep 300"},
		},
	}, nopLogger())
}

func TestCrashedProcessIsRestarted(t *testing.T) {
	h := newGenericHost(t)
	server := newSleepServer(h, "a1", true)
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, server))
	require.NoError(t, h.Start(ctx, "a1"))
	first := server.Process()
	require.NotNil(t, first)
	firstPid := first.Pid()

	// Kill the OS process behind the host's back.
	require.NoError(t, first.Kill())

	require.Eventually(t, func() bool {
		return currentStatus(h, "a1") == StatusRestarting
	}, 5*time.Second, 10*time.Millisecond, "expected the crash to be noticed")

	require.Eventually(t, func() bool {
		handle := server.Process()
		return currentStatus(h, "a1") == StatusStarted && handle != nil && handle.Pid() != firstPid
	}, 5*time.Second, 10*time.Millisecond, "expected a new process after the grace delay")

	require.NoError(t, h.Stop(ctx, "a1"))
	assert.Equal(t, StatusStopped, currentStatus(h, "a1"))
}

func TestCrashedProcessStaysDownWithoutAutoRestart(t *testing.T) {
	h := newGenericHost(t)
	server := newSleepServer(h, "a1", false)
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, server))
	require.NoError(t, h.Start(ctx, "a1"))
	require.NoError(t, server.Process().Kill())

	require.Eventually(t, func() bool {
		return currentStatus(h, "a1") == StatusStopped
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, StatusStopped, currentStatus(h, "a1"))
	assert.False(t, server.Process().Alive())
}
