package gameserver

import (
	"sync"

	"github.com/game-tools/gsm-host-go/pkg/errors"
)

// Factory constructs an empty server of one concrete type, ready to
// have its document unmarshaled into.
type Factory func() Server

// TypeRegistry maps discriminator strings to construction functions.
// Populated at startup; no runtime type scanning.
type TypeRegistry struct {
	mutex     sync.RWMutex
	factories map[string]Factory
	order     []string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		factories: make(map[string]Factory),
	}
}

// Register binds a discriminator to a factory. Registering the same
// discriminator twice is a conflict.
func (r *TypeRegistry) Register(discriminator string, factory Factory) error {
	if discriminator == "" {
		return errors.NewValidationError("discriminator cannot be empty", nil)
	}
	if factory == nil {
		return errors.NewValidationError("factory cannot be nil", nil).WithContext("type", discriminator)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.factories[discriminator]; exists {
		return errors.NewConflictError("server type already registered", nil).WithContext("type", discriminator)
	}

	r.factories[discriminator] = factory
	r.order = append(r.order, discriminator)
	return nil
}

// New constructs an empty server for the given discriminator.
func (r *TypeRegistry) New(discriminator string) (Server, error) {
	r.mutex.RLock()
	factory, exists := r.factories[discriminator]
	r.mutex.RUnlock()

	if !exists {
		return nil, errors.NewInvalidConfigError("unrecognized server type", nil).WithContext("type", discriminator)
	}
	return factory(), nil
}

// Types returns the registered discriminators in registration order.
func (r *TypeRegistry) Types() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}
