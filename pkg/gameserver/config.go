package gameserver

import (
	"github.com/game-tools/gsm-host-go/pkg/process"
)

// BasicConfig identifies an instance to operators: the immutable id,
// the display name, and the install directory.
type BasicConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

// AdvancedConfig carries host-level behavior knobs shared by every
// server type.
type AdvancedConfig struct {
	// AutoRestart enables restart after an unexpected process exit.
	AutoRestart bool `json:"autoRestart"`

	// Resources is applied best-effort to the live process after start.
	Resources process.Resources `json:"resources"`
}

// Config is the shared portion of every persisted server document.
// Type is the discriminator selecting the owning plugin; the remaining
// document shape is plugin-defined.
type Config struct {
	Type     string         `json:"type"`
	Basic    BasicConfig    `json:"basic"`
	Advanced AdvancedConfig `json:"advanced"`
}
