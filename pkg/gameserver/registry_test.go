package gameserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

type registryTestServer struct {
	config Config
}

func (s *registryTestServer) Config() *Config { return &s.config }
func (s *registryTestServer) Document() interface{} { return &s.config }
func (s *registryTestServer) Process() process.Handle { return nil }
func (s *registryTestServer) Create(context.Context) error { return nil }
func (s *registryTestServer) Update(context.Context) error { return nil }
func (s *registryTestServer) Delete(context.Context) error { return nil }
func (s *registryTestServer) Start(context.Context) error { return nil }
func (s *registryTestServer) Stop(context.Context) error { return nil }

func (s *registryTestServer) GetLatestVersion(context.Context) (string, error) {
	return "", nil
}

func factoryFor(serverType string) Factory {
	return func() Server {
		return &registryTestServer{config: Config{Type: serverType}}
	}
}

func TestRegistryRegisterAndNew(t *testing.T) {
	registry := NewTypeRegistry()
	require.NoError(t, registry.Register("alpha", factoryFor("alpha")))

	server, err := registry.New("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", server.Config().Type)

	// Every construction yields a fresh instance.
	other, err := registry.New("alpha")
	require.NoError(t, err)
	assert.NotSame(t, server, other)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewTypeRegistry()
	require.NoError(t, registry.Register("alpha", factoryFor("alpha")))

	err := registry.Register("alpha", factoryFor("alpha"))
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeConflict))
}

func TestRegistryValidation(t *testing.T) {
	registry := NewTypeRegistry()

	assert.True(t, errors.IsErrorType(registry.Register("", factoryFor("")), errors.ErrorTypeValidation))
	assert.True(t, errors.IsErrorType(registry.Register("alpha", nil), errors.ErrorTypeValidation))
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewTypeRegistry()

	_, err := registry.New("no-such-type")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidConfig))
}

func TestRegistryTypesKeepRegistrationOrder(t *testing.T) {
	registry := NewTypeRegistry()
	require.NoError(t, registry.Register("beta", factoryFor("beta")))
	require.NoError(t, registry.Register("alpha", factoryFor("alpha")))

	assert.Equal(t, []string{"beta", "alpha"}, registry.Types())
}
