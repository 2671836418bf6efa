// Package host implements the orchestration engine: the server
// registry, the lifecycle state machine driving each instance, crash
// detection with auto-restart, and the background version poller.
package host

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/game-tools/gsm-host-go/pkg/configstore"
	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
	"github.com/game-tools/gsm-host-go/pkg/metrics"
	"github.com/game-tools/gsm-host-go/pkg/process"
	"github.com/game-tools/gsm-host-go/pkg/versions"
)

type Options struct {
	// RootDir is the base install root holding configs/, storage/ and
	// servers/.
	RootDir string

	// Product prefixes generated display names.
	Product string

	// KillTimeout bounds the wait for process exit after a kill request.
	KillTimeout time.Duration

	// RestartGrace is the delay between an unexpected exit and the
	// automatic restart, to avoid crash-restart storms.
	RestartGrace time.Duration

	// VersionPollInterval is the period of the version poller.
	VersionPollInterval time.Duration
}

const (
	DefaultProduct             = "GSM Host"
	DefaultKillTimeout         = 5 * time.Second
	DefaultRestartGrace        = 5 * time.Second
	DefaultVersionPollInterval = 5 * time.Minute
)

func (o *Options) applyDefaults() {
	if o.Product == "" {
		o.Product = DefaultProduct
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = DefaultKillTimeout
	}
	if o.RestartGrace <= 0 {
		o.RestartGrace = DefaultRestartGrace
	}
	if o.VersionPollInterval <= 0 {
		o.VersionPollInterval = DefaultVersionPollInterval
	}
}

// serverEntry pairs a server with its status tracker. opMutex is the
// single arbitration point per instance: every mutating operation and
// the exit observer's stop-vs-crash decision run under it, so a
// deliberate stop is never reinterpreted as a crash.
type serverEntry struct {
	server  gameserver.Server
	status  *statusTracker
	opMutex sync.Mutex

	// watched is the process handle the exit observer is armed on;
	// guarded by opMutex.
	watched process.Handle
}

// Host owns the server registry and exposes the orchestration
// operations to the presentation layer.
type Host struct {
	options Options
	logger  logging.Logger

	store    *configstore.Store
	registry *gameserver.TypeRegistry
	poller   *versions.Poller

	mutex   sync.Mutex
	servers map[string]*serverEntry
	order   []string

	subMutex    sync.Mutex
	subscribers []chan struct{}
}

func NewHost(options Options, registry *gameserver.TypeRegistry, logger logging.Logger) (*Host, error) {
	if options.RootDir == "" {
		return nil, errors.NewValidationError("root directory cannot be empty", nil)
	}
	if registry == nil {
		return nil, errors.NewValidationError("type registry cannot be nil", nil)
	}
	options.applyDefaults()

	h := &Host{
		options:  options,
		logger:   logger,
		registry: registry,
		servers:  make(map[string]*serverEntry),
	}
	h.store = configstore.NewStore(options.RootDir, registry, logger)
	h.poller = versions.NewPoller(options.VersionPollInterval, h.snapshotServers, logger)

	return h, nil
}

// Store exposes the config store, e.g. for the entrypoint to arm the
// config-directory watcher.
func (h *Host) Store() *configstore.Store {
	return h.store
}

// Poller exposes the version poller for start/stop at service boundary.
func (h *Host) Poller() *versions.Poller {
	return h.poller
}

// Bootstrap builds the registry from the config store. Discovery is
// idempotent; a bad config file is skipped inside the store, never
// fatal here.
func (h *Host) Bootstrap() error {
	servers, err := h.store.LoadAll()
	if err != nil {
		return err
	}

	for _, server := range servers {
		if err := h.addEntry(server); err != nil {
			h.logger.Warnf("Skipping instance at bootstrap, id: %s, error: %v", server.Config().Basic.ID, err)
		}
	}

	h.logger.Infof("Bootstrap complete, instances: %d", len(servers))
	h.notifyChanged()
	return nil
}

// Rediscover loads config files that appeared on disk after bootstrap
// and registers them. Already-known instances are untouched.
func (h *Host) Rediscover() {
	servers, err := h.store.LoadAll()
	if err != nil {
		h.logger.Warnf("Rediscovery failed: %v", err)
		return
	}

	added := 0
	for _, server := range servers {
		id := server.Config().Basic.ID
		h.mutex.Lock()
		_, known := h.servers[id]
		h.mutex.Unlock()
		if known {
			continue
		}
		if err := h.addEntry(server); err != nil {
			h.logger.Warnf("Skipping rediscovered instance, id: %s, error: %v", id, err)
			continue
		}
		h.logger.Infof("Registered rediscovered instance, id: %s", id)
		added++
	}

	if added > 0 {
		h.rewriteIndex()
		h.notifyChanged()
	}
}

// addEntry registers a server in the registry with status stopped.
func (h *Host) addEntry(server gameserver.Server) error {
	id := server.Config().Basic.ID
	if id == "" {
		return errors.NewValidationError("instance id cannot be empty", nil)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.servers[id]; exists {
		return errors.NewConflictError("instance already registered", nil).WithContext("id", id)
	}

	h.servers[id] = &serverEntry{
		server: server,
		status: newStatusTracker(id, h.logger),
	}
	h.order = append(h.order, id)
	metrics.RegisteredInstances.Set(float64(len(h.servers)))
	return nil
}

func (h *Host) entry(id string) (*serverEntry, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	entry, exists := h.servers[id]
	if !exists {
		return nil, errors.NewNotFoundError("instance not registered", nil).WithContext("id", id)
	}
	return entry, nil
}

// removeEntry drops an instance from the registry and rewrites the
// index from the same snapshot.
func (h *Host) removeEntry(id string) {
	h.mutex.Lock()
	delete(h.servers, id)
	for i, known := range h.order {
		if known == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	ids := make([]string, len(h.order))
	copy(ids, h.order)
	metrics.RegisteredInstances.Set(float64(len(h.servers)))
	h.mutex.Unlock()

	if err := h.store.WriteIndex(ids); err != nil {
		h.logger.Warnf("Failed to rewrite instance index: %v", err)
	}
}

// rewriteIndex persists the registry's current id set.
func (h *Host) rewriteIndex() {
	h.mutex.Lock()
	ids := make([]string, len(h.order))
	copy(ids, h.order)
	h.mutex.Unlock()

	if err := h.store.WriteIndex(ids); err != nil {
		h.logger.Warnf("Failed to rewrite instance index: %v", err)
	}
}

// snapshotServers returns the registered servers in registration order.
func (h *Host) snapshotServers() []gameserver.Server {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	servers := make([]gameserver.Server, 0, len(h.order))
	for _, id := range h.order {
		servers = append(servers, h.servers[id].server)
	}
	return servers
}

// Subscribe returns a channel receiving a fire-and-forget signal
// whenever the instance set changes. No delivery guarantee; slow
// consumers miss intermediate signals, never block the host.
func (h *Host) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	h.subMutex.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.subMutex.Unlock()
	return ch
}

func (h *Host) notifyChanged() {
	h.subMutex.Lock()
	defer h.subMutex.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// guarded runs one lifecycle operation under the entry's arbitration
// mutex: status to the in-progress state, invoke the capability, then
// settle in the success or fallback state. The original failure is
// propagated unchanged.
func (h *Host) guarded(entry *serverEntry, operation string, inProgress, onSuccess, onFailure Status, fn func() error) error {
	entry.opMutex.Lock()
	defer entry.opMutex.Unlock()
	return h.guardedLocked(entry, operation, inProgress, onSuccess, onFailure, fn)
}

func (h *Host) guardedLocked(entry *serverEntry, operation string, inProgress, onSuccess, onFailure Status, fn func() error) error {
	if err := entry.status.Transition(inProgress, operation, nil); err != nil {
		metrics.ObserveOperation(operation, err)
		return err
	}

	if err := fn(); err != nil {
		if terr := entry.status.Transition(onFailure, operation, err); terr != nil {
			h.logger.Errorf("Failed to settle status after %s failure, id: %s, error: %v",
				operation, entry.server.Config().Basic.ID, terr)
		}
		metrics.ObserveOperation(operation, err)
		return err
	}

	if terr := entry.status.Transition(onSuccess, operation, nil); terr != nil {
		h.logger.Errorf("Failed to settle status after %s, id: %s, error: %v",
			operation, entry.server.Config().Basic.ID, terr)
	}
	metrics.ObserveOperation(operation, nil)
	return nil
}

// pluginFailure wraps a plugin capability error unless the plugin
// already returned a classified error.
func pluginFailure(err error, message string, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *errors.DomainError
	if errors.AsDomainError(err, &domainErr) {
		return err
	}
	return errors.NewPluginError(message, err).WithContext("id", id)
}

// Create registers a new instance, persists its config, and invokes the
// plugin's create capability. The instance is visible in the registry
// as creating before the plugin work completes, so a half-created
// instance stays discoverable.
func (h *Host) Create(ctx context.Context, server gameserver.Server) error {
	if server == nil {
		return errors.NewValidationError("server cannot be nil", nil)
	}

	config := server.Config()
	id := config.Basic.ID
	if id == "" {
		return errors.NewValidationError("instance id cannot be empty", nil)
	}
	if config.Basic.Directory == "" {
		config.Basic.Directory = h.store.DefaultInstallDir(id)
	}

	if err := h.addEntry(server); err != nil {
		return err
	}
	h.rewriteIndex()
	h.notifyChanged()

	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "create", StatusCreating, StatusStopped, StatusStopped, func() error {
		if err := os.MkdirAll(config.Basic.Directory, 0o755); err != nil {
			return errors.NewFileSystemError("failed to create install directory", err).WithContext("id", id).WithContext("dir", config.Basic.Directory)
		}
		// Persist before the plugin runs so a failed create is still
		// recoverable from disk.
		if err := h.store.Save(server); err != nil {
			return err
		}
		return pluginFailure(server.Create(ctx), "create capability failed", id)
	})
}

// Update persists the instance's current document and invokes the
// plugin's update capability.
func (h *Host) Update(ctx context.Context, id string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "update", StatusUpdating, StatusStopped, StatusStopped, func() error {
		if err := h.store.Save(entry.server); err != nil {
			return err
		}
		return pluginFailure(entry.server.Update(ctx), "update capability failed", id)
	})
}

// Delete tears an instance down: plugin delete, install directory
// removal, config removal, then registry removal. Any failure leaves
// the instance registered with status stopped so the caller can retry.
func (h *Host) Delete(ctx context.Context, id string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	entry.opMutex.Lock()
	defer entry.opMutex.Unlock()

	if err := entry.status.Transition(StatusDeleting, "delete", nil); err != nil {
		metrics.ObserveOperation("delete", err)
		return err
	}

	fail := func(err error) error {
		if terr := entry.status.Transition(StatusStopped, "delete", err); terr != nil {
			h.logger.Errorf("Failed to settle status after delete failure, id: %s, error: %v", id, terr)
		}
		metrics.ObserveOperation("delete", err)
		return err
	}

	if err := pluginFailure(entry.server.Delete(ctx), "delete capability failed", id); err != nil {
		return fail(err)
	}

	dir := entry.server.Config().Basic.Directory
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fail(errors.NewFileSystemError("failed to remove install directory", err).WithContext("id", id).WithContext("dir", dir))
		}
	}

	if err := h.store.Delete(id); err != nil {
		return fail(err)
	}

	h.removeEntry(id)
	h.notifyChanged()
	metrics.ObserveOperation("delete", nil)
	h.logger.Infof("Instance deleted, id: %s", id)
	return nil
}

// Start invokes the plugin's start capability, then applies the
// configured scheduling resources to the live process (best-effort)
// and arms the exit observer.
func (h *Host) Start(ctx context.Context, id string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "start", StatusStarting, StatusStarted, StatusStopped, func() error {
		return h.startLocked(ctx, entry, id)
	})
}

func (h *Host) startLocked(ctx context.Context, entry *serverEntry, id string) error {
	if err := entry.server.Start(ctx); err != nil {
		var domainErr *errors.DomainError
		if errors.AsDomainError(err, &domainErr) {
			return err
		}
		return errors.NewProcessStartError("start capability failed", err).WithContext("id", id)
	}

	handle := entry.server.Process()
	if handle == nil {
		return nil
	}

	resources := entry.server.Config().Advanced.Resources
	if err := process.ApplyResources(handle.Pid(), resources, h.logger); err != nil {
		// Best-effort: the server runs either way.
		h.logger.Warnf("Failed to apply process resources, id: %s, pid: %d, error: %v", id, handle.Pid(), err)
	}

	h.watchLocked(entry, handle)
	return nil
}

// Stop invokes the plugin's stop capability. The status is stopping for
// the whole duration, which is how the exit observer distinguishes this
// exit from a crash.
func (h *Host) Stop(ctx context.Context, id string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "stop", StatusStopping, StatusStopped, StatusStarted, func() error {
		return pluginFailure(entry.server.Stop(ctx), "stop capability failed", id)
	})
}

// Restart is stop followed by start, two independent fully-observable
// transitions.
func (h *Host) Restart(ctx context.Context, id string) error {
	if err := h.Stop(ctx, id); err != nil {
		return err
	}
	return h.Start(ctx, id)
}

// Kill requests OS-level termination and waits up to the kill timeout
// for the process to actually exit. On timeout the operation fails with
// a kill-timeout error naming the pid; status settles at stopped either
// way, since termination was requested.
func (h *Host) Kill(ctx context.Context, id string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "kill", StatusKilling, StatusStopped, StatusStopped, func() error {
		handle := entry.server.Process()
		if handle == nil || !handle.Alive() {
			return nil
		}

		if err := handle.Kill(); err != nil {
			h.logger.Warnf("Kill request failed, id: %s, pid: %d, error: %v", id, handle.Pid(), err)
		}

		select {
		case <-handle.Exited():
			return nil
		case <-time.After(h.options.KillTimeout):
			return errors.NewKillTimeoutError("process did not exit after kill", nil).WithContext("id", id).WithContext("pid", handle.Pid())
		case <-ctx.Done():
			return errors.NewCancelledError("kill cancelled", ctx.Err()).WithContext("id", id)
		}
	})
}

// InstallMod invokes the plugin's mod-install capability, when the
// server type supports one.
func (h *Host) InstallMod(ctx context.Context, id string, mod gameserver.Mod, version string) error {
	entry, err := h.entry(id)
	if err != nil {
		return err
	}

	return h.guarded(entry, "install_mod", StatusInstallingMod, StatusStopped, StatusStopped, func() error {
		installer, ok := entry.server.(gameserver.ModInstaller)
		if !ok {
			return errors.NewModInstallError("server type does not support mod installation", nil).WithContext("id", id).WithContext("type", entry.server.Config().Type)
		}
		if err := installer.InstallMod(ctx, mod, version); err != nil {
			var domainErr *errors.DomainError
			if errors.AsDomainError(err, &domainErr) {
				return err
			}
			return errors.NewModInstallError("mod install capability failed", err).WithContext("id", id).WithContext("mod", mod.Name)
		}
		return nil
	})
}

// Info is the registry view of one instance.
type Info struct {
	ID     string
	Type   string
	Name   string
	Status Status
	PID    int
}

// ListAll returns the registry contents in registration order.
func (h *Host) ListAll() []Info {
	h.mutex.Lock()
	entries := make([]*serverEntry, 0, len(h.order))
	for _, id := range h.order {
		entries = append(entries, h.servers[id])
	}
	h.mutex.Unlock()

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		config := entry.server.Config()
		info := Info{
			ID:     config.Basic.ID,
			Type:   config.Type,
			Name:   config.Basic.Name,
			Status: entry.status.Current(),
		}
		if handle := entry.server.Process(); handle != nil && handle.Alive() {
			info.PID = handle.Pid()
		}
		infos = append(infos, info)
	}
	return infos
}

// Load returns the registered server for an id.
func (h *Host) Load(id string) (gameserver.Server, error) {
	entry, err := h.entry(id)
	if err != nil {
		return nil, err
	}
	return entry.server, nil
}

// StatusOf returns an instance's current lifecycle status.
func (h *Host) StatusOf(id string) (Status, error) {
	entry, err := h.entry(id)
	if err != nil {
		return "", err
	}
	return entry.status.Current(), nil
}

// StatusHistory returns the recorded transitions for an instance.
func (h *Host) StatusHistory(id string) ([]StatusTransition, error) {
	entry, err := h.entry(id)
	if err != nil {
		return nil, err
	}
	return entry.status.History(), nil
}

// TryGetLatestVersion reports the cached latest version for the
// instance's server type, if the poller has data.
func (h *Host) TryGetLatestVersion(id string) (versions.Entry, bool, error) {
	entry, err := h.entry(id)
	if err != nil {
		return versions.Entry{}, false, err
	}
	cached, ok := h.poller.TryGet(entry.server.Config().Type)
	return cached, ok, nil
}

// SupportedTypes lists the instantiable server types.
func (h *Host) SupportedTypes() []string {
	return h.registry.Types()
}
