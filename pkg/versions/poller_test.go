package versions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

// pollServer is a minimal server whose version lookup is scriptable
// per instance.
type pollServer struct {
	config gameserver.Config

	mutex   sync.Mutex
	version string
	err     error
	calls   int
}

func newPollServer(serverType, id, version string) *pollServer {
	return &pollServer{
		config: gameserver.Config{
			Type:  serverType,
			Basic: gameserver.BasicConfig{ID: id},
		},
		version: version,
	}
}

func (p *pollServer) Config() *gameserver.Config { return &p.config }
func (p *pollServer) Document() interface{} { return &p.config }
func (p *pollServer) Process() process.Handle { return nil }
func (p *pollServer) Create(context.Context) error { return nil }
func (p *pollServer) Update(context.Context) error { return nil }
func (p *pollServer) Delete(context.Context) error { return nil }
func (p *pollServer) Start(context.Context) error { return nil }
func (p *pollServer) Stop(context.Context) error { return nil }

func (p *pollServer) GetLatestVersion(context.Context) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.calls++
	return p.version, p.err
}

func (p *pollServer) pollCalls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.calls
}

func (p *pollServer) setResult(version string, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.version = version
	p.err = err
}

func listerOf(servers ...gameserver.Server) Lister {
	return func() []gameserver.Server { return servers }
}

func nopLogger() logging.Logger {
	return logging.NewLogger("", logging.LogFuncs{})
}

func TestTickPollsOneRepresentativePerType(t *testing.T) {
	first := newPollServer("alpha", "a1", "1.0.0")
	second := newPollServer("alpha", "a2", "1.0.0")
	other := newPollServer("beta", "b1", "4.2.0")

	poller := NewPoller(time.Minute, listerOf(first, second, other), nopLogger())
	poller.Tick(context.Background())

	// First instance of each type wins representation.
	assert.Equal(t, 1, first.pollCalls())
	assert.Equal(t, 0, second.pollCalls())
	assert.Equal(t, 1, other.pollCalls())

	entry, ok := poller.TryGet("alpha")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version)
	assert.False(t, entry.CheckedAt.IsZero())

	entry, ok = poller.TryGet("beta")
	require.True(t, ok)
	assert.Equal(t, "4.2.0", entry.Version)
}

func TestTickIsolatesFailuresPerType(t *testing.T) {
	healthy := newPollServer("alpha", "a1", "1.0.0")
	failing := newPollServer("beta", "b1", "")
	failing.setResult("", fmt.Errorf("registry unreachable"))

	poller := NewPoller(time.Minute, listerOf(healthy, failing), nopLogger())
	poller.Tick(context.Background())

	_, ok := poller.TryGet("beta")
	assert.False(t, ok)

	entry, ok := poller.TryGet("alpha")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version)
}

func TestFailedPollKeepsPreviousEntry(t *testing.T) {
	server := newPollServer("alpha", "a1", "1.0.0")
	poller := NewPoller(time.Minute, listerOf(server), nopLogger())

	poller.Tick(context.Background())
	entry, ok := poller.TryGet("alpha")
	require.True(t, ok)
	require.Equal(t, "1.0.0", entry.Version)

	server.setResult("", fmt.Errorf("registry unreachable"))
	poller.Tick(context.Background())

	// The stale-but-valid entry survives the failed refresh.
	entry, ok = poller.TryGet("alpha")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version)
}

func TestTryGetWithoutData(t *testing.T) {
	poller := NewPoller(time.Minute, listerOf(), nopLogger())
	poller.Tick(context.Background())

	_, ok := poller.TryGet("alpha")
	assert.False(t, ok)
}

func TestPickRepresentatives(t *testing.T) {
	first := newPollServer("alpha", "a1", "")
	second := newPollServer("alpha", "a2", "")
	other := newPollServer("beta", "b1", "")

	representatives := pickRepresentatives([]gameserver.Server{first, second, other})
	require.Len(t, representatives, 2)
	assert.Same(t, first, representatives["alpha"])
	assert.Same(t, other, representatives["beta"])
}

func TestStartAndStop(t *testing.T) {
	server := newPollServer("alpha", "a1", "1.0.0")
	poller := NewPoller(50*time.Millisecond, listerOf(server), nopLogger())

	require.NoError(t, poller.Start())
	defer poller.Stop()

	require.Eventually(t, func() bool {
		_, ok := poller.TryGet("alpha")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "expected the schedule to fire")
}
