package configstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

const stubTypeName = "stub"

type stubDocument struct {
	gameserver.Config
	WorldSeed string `json:"worldSeed,omitempty"`
}

type stubServer struct {
	doc stubDocument
}

func newStubServer(id string) *stubServer {
	return &stubServer{
		doc: stubDocument{
			Config: gameserver.Config{
				Type: stubTypeName,
				Basic: gameserver.BasicConfig{
					ID:   id,
					Name: "stub " + id,
				},
			},
		},
	}
}

func (s *stubServer) Config() *gameserver.Config { return &s.doc.Config }
func (s *stubServer) Document() interface{} { return &s.doc }
func (s *stubServer) Process() process.Handle { return nil }
func (s *stubServer) Create(context.Context) error { return nil }
func (s *stubServer) Update(context.Context) error { return nil }
func (s *stubServer) Delete(context.Context) error { return nil }
func (s *stubServer) Start(context.Context) error { return nil }
func (s *stubServer) Stop(context.Context) error { return nil }

func (s *stubServer) GetLatestVersion(context.Context) (string, error) { return "1.0.0", nil }

func newTestStore(t *testing.T) *Store {
	registry := gameserver.NewTypeRegistry()
	require.NoError(t, registry.Register(stubTypeName, func() gameserver.Server {
		return newStubServer("")
	}))
	return NewStore(t.TempDir(), registry, logging.NewLogger("", logging.LogFuncs{}))
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	server := newStubServer("a1")
	server.doc.WorldSeed = "volcano"
	server.doc.Advanced.AutoRestart = true

	require.NoError(t, store.Save(server))
	assert.FileExists(t, store.ConfigPath("a1"))

	loaded, err := store.Load("a1")
	require.NoError(t, err)
	stub := loaded.(*stubServer)
	assert.Equal(t, "a1", stub.Config().Basic.ID)
	assert.Equal(t, "volcano", stub.doc.WorldSeed)
	assert.True(t, stub.Config().Advanced.AutoRestart)
}

func TestLoadMissingConfig(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("ghost")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeConfigNotFound))
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	store := newTestStore(t)
	configsDir := filepath.Dir(store.ConfigPath("x"))
	require.NoError(t, os.MkdirAll(configsDir, 0o755))

	writeConfig := func(id, content string) {
		require.NoError(t, os.WriteFile(store.ConfigPath(id), []byte(content), 0o644))
	}

	writeConfig("garbled", "{not json")
	_, err := store.Load("garbled")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidConfig))

	writeConfig("untyped", `{"basic": {"id": "untyped"}}`)
	_, err = store.Load("untyped")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidConfig))

	writeConfig("alien", `{"type": "no-such-type", "basic": {"id": "alien"}}`)
	_, err = store.Load("alien")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidConfig))

	writeConfig("renamed", `{"type": "stub", "basic": {"id": "other"}}`)
	_, err = store.Load("renamed")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidConfig))
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(newStubServer("a1")))

	require.NoError(t, store.Delete("a1"))
	assert.NoFileExists(t, store.ConfigPath("a1"))
	require.NoError(t, store.Delete("a1"))
}

func TestSaveRequiresID(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(newStubServer(""))
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeValidation))
}

func TestLoadAllFollowsIndexOrder(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(newStubServer("b2")))
	require.NoError(t, store.Save(newStubServer("a1")))
	require.NoError(t, store.WriteIndex([]string{"b2", "a1"}))

	servers, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "b2", servers[0].Config().Basic.ID)
	assert.Equal(t, "a1", servers[1].Config().Basic.ID)
}

func TestLoadAllRecoversUnindexedConfigs(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(newStubServer("a1")))
	require.NoError(t, store.Save(newStubServer("b2")))
	// Only a1 made it into the index.
	require.NoError(t, store.WriteIndex([]string{"a1"}))

	servers, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, servers, 2)

	// The index heals to the full set within one discovery run.
	servers, err = store.LoadAll()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "a1", servers[0].Config().Basic.ID)
	assert.Equal(t, "b2", servers[1].Config().Basic.ID)
}

func TestLoadAllSkipsStaleAndBadEntries(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(newStubServer("a1")))
	// Stale index entry with no file behind it, plus a duplicate.
	require.NoError(t, store.WriteIndex([]string{"ghost", "a1", "a1"}))
	// An unparsable config file sitting next to a good one.
	require.NoError(t, os.WriteFile(store.ConfigPath("broken"), []byte("{"), 0o644))

	servers, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "a1", servers[0].Config().Basic.ID)
}

func TestLoadAllWithEmptyRoot(t *testing.T) {
	store := newTestStore(t)
	servers, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestDefaultInstallDirLayout(t *testing.T) {
	registry := gameserver.NewTypeRegistry()
	require.NoError(t, registry.Register(stubTypeName, func() gameserver.Server {
		return newStubServer("")
	}))
	store := NewStore("/srv/gsm", registry, logging.NewLogger("", logging.LogFuncs{}))

	assert.Equal(t, filepath.Join("/srv/gsm", "configs", "a1.json"), store.ConfigPath("a1"))
	assert.Equal(t, filepath.Join("/srv/gsm", "servers", "a1"), store.DefaultInstallDir("a1"))
}
