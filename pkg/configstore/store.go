// Package configstore owns the on-disk representation of server
// instances: one JSON document per instance under configs/, plus an
// ordered index of known instance ids under storage/. The index is a
// bootstrap accelerator, not a source of truth; discovery always
// reconciles it against the config files actually on disk.
package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

const (
	configsDirName = "configs"
	storageDirName = "storage"
	serversDirName = "servers"
	indexFileName  = "serverGuids.json"
	configExt      = ".json"
)

type Store struct {
	rootDir  string
	registry *gameserver.TypeRegistry
	logger   logging.Logger
}

func NewStore(rootDir string, registry *gameserver.TypeRegistry, logger logging.Logger) *Store {
	return &Store{
		rootDir:  rootDir,
		registry: registry,
		logger:   logger,
	}
}

func (s *Store) configsDir() string {
	return filepath.Join(s.rootDir, configsDirName)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.rootDir, storageDirName, indexFileName)
}

// ConfigPath returns the config file path for an instance id.
func (s *Store) ConfigPath(id string) string {
	return filepath.Join(s.configsDir(), id+configExt)
}

// DefaultInstallDir returns the default install directory for an
// instance id.
func (s *Store) DefaultInstallDir(id string) string {
	return filepath.Join(s.rootDir, serversDirName, id)
}

// Load reads and deserializes one instance document. The discriminator
// field is read first and routes construction to the owning plugin.
func (s *Store) Load(id string) (gameserver.Server, error) {
	data, err := os.ReadFile(s.ConfigPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigNotFoundError("no config file for instance", err).WithContext("id", id)
		}
		return nil, errors.NewIOError("failed to read config file", err).WithContext("id", id)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.NewInvalidConfigError("unparsable config document", err).WithContext("id", id)
	}
	if head.Type == "" {
		return nil, errors.NewInvalidConfigError("missing type discriminator", nil).WithContext("id", id)
	}

	server, err := s.registry.New(head.Type)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, server.Document()); err != nil {
		return nil, errors.NewInvalidConfigError("config document does not match server type", err).WithContext("id", id).WithContext("type", head.Type)
	}

	if got := server.Config().Basic.ID; got != id {
		return nil, errors.NewInvalidConfigError("config id does not match filename", nil).WithContext("id", id).WithContext("config_id", got)
	}

	return server, nil
}

// Save persists an instance document atomically (temp file + rename),
// so a crash mid-write never leaves an unparsable document behind.
func (s *Store) Save(server gameserver.Server) error {
	id := server.Config().Basic.ID
	if id == "" {
		return errors.NewValidationError("instance id cannot be empty", nil)
	}

	if err := os.MkdirAll(s.configsDir(), 0o755); err != nil {
		return errors.NewFileSystemError("failed to create configs directory", err)
	}

	data, err := json.MarshalIndent(server.Document(), "", "  ")
	if err != nil {
		return errors.NewInternalError("failed to serialize config document", err).WithContext("id", id)
	}

	return s.writeAtomic(s.ConfigPath(id), data)
}

// Delete removes an instance document. A missing file is not an error;
// the goal state is reached either way.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.ConfigPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.NewFileSystemError("failed to delete config file", err).WithContext("id", id)
	}
	return nil
}

// LoadAll performs bootstrap discovery: the index is the best-effort
// fast path, the directory scan repairs anything the index missed, and
// the index is rewritten to the deduplicated set of now-known ids so
// drift heals within one run.
func (s *Store) LoadAll() ([]gameserver.Server, error) {
	loaded := make(map[string]gameserver.Server)
	var order []string

	for _, id := range s.readIndex() {
		if _, seen := loaded[id]; seen {
			continue
		}
		server, err := s.Load(id)
		if err != nil {
			// The index is not trusted blindly; stale entries are skipped.
			s.logger.Warnf("Skipping indexed instance, id: %s, error: %v", id, err)
			continue
		}
		loaded[id] = server
		order = append(order, id)
	}

	for _, id := range s.scanConfigIDs() {
		if _, seen := loaded[id]; seen {
			continue
		}
		server, err := s.Load(id)
		if err != nil {
			s.logger.Warnf("Skipping unloadable config file, id: %s, error: %v", id, err)
			continue
		}
		s.logger.Infof("Recovered instance missing from index, id: %s", id)
		loaded[id] = server
		order = append(order, id)
	}

	if err := s.WriteIndex(order); err != nil {
		s.logger.Warnf("Failed to rewrite instance index: %v", err)
	}

	servers := make([]gameserver.Server, 0, len(order))
	for _, id := range order {
		servers = append(servers, loaded[id])
	}
	return servers, nil
}

// WriteIndex rewrites the ordered instance id index.
func (s *Store) WriteIndex(ids []string) error {
	if err := os.MkdirAll(filepath.Dir(s.indexPath()), 0o755); err != nil {
		return errors.NewFileSystemError("failed to create storage directory", err)
	}

	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return errors.NewInternalError("failed to serialize instance index", err)
	}

	return s.writeAtomic(s.indexPath(), data)
}

// readIndex returns the indexed ids, or nil when the index is missing
// or unparsable. Either way discovery proceeds from the directory scan.
func (s *Store) readIndex() []string {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.Warnf("Instance index is unparsable, rebuilding from disk: %v", err)
		return nil
	}
	return ids
}

// scanConfigIDs lists the instance ids with config files on disk,
// sorted for deterministic discovery order.
func (s *Store) scanConfigIDs() []string {
	entries, err := os.ReadDir(s.configsDir())
	if err != nil {
		return nil
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), configExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), configExt))
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewFileSystemError("failed to create temp file", err).WithContext("path", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewIOError("failed to write temp file", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewIOError("failed to close temp file", err).WithContext("path", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.NewFileSystemError("failed to replace file", err).WithContext("path", path)
	}
	return nil
}
