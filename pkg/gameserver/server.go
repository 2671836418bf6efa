package gameserver

import (
	"context"

	"github.com/game-tools/gsm-host-go/pkg/process"
)

// Server is the capability contract every game-server plugin satisfies.
// The orchestrator never branches on the concrete type; all
// type-specific behavior lives behind this interface, selected once at
// construction time via the discriminator.
//
// Create, Update and Delete operate on the server's own payload only;
// install-directory and process cleanup are the orchestrator's job.
type Server interface {
	// Config returns the shared portion of the server's configuration.
	Config() *Config

	// Document returns a pointer to the full persisted document,
	// including plugin-specific fields, for (de)serialization.
	Document() interface{}

	// Process returns the live process handle, or nil when no process
	// is associated with the instance.
	Process() process.Handle

	Create(ctx context.Context) error
	Update(ctx context.Context) error
	Delete(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// GetLatestVersion reports the newest upstream version available
	// for this server type.
	GetLatestVersion(ctx context.Context) (string, error)
}

// Mod describes an installable mod payload.
type Mod struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ModInstaller is an optional capability. The orchestrator upgrades to
// it via type assertion; servers that do not implement it reject mod
// installation.
type ModInstaller interface {
	InstallMod(ctx context.Context, mod Mod, version string) error
}
