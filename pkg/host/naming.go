package host

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/game-tools/gsm-host-go/pkg/gameserver"
)

// NewDefaultConfig scaffolds the basic config for a new instance: a
// fresh GUID when none is supplied, the default install directory, and
// a display name following "<product> - Server #N" where N is the
// smallest positive integer not already used as a display-name suffix.
func (h *Host) NewDefaultConfig(id string) gameserver.BasicConfig {
	if id == "" {
		id = uuid.NewString()
	}

	used := make(map[int]bool)
	h.mutex.Lock()
	for _, entry := range h.servers {
		if n, ok := serverNameSuffix(entry.server.Config().Basic.Name); ok {
			used[n] = true
		}
	}
	h.mutex.Unlock()

	n := 1
	for used[n] {
		n++
	}

	return gameserver.BasicConfig{
		ID:        id,
		Name:      fmt.Sprintf("%s - Server #%d", h.options.Product, n),
		Directory: h.store.DefaultInstallDir(id),
	}
}

// serverNameSuffix extracts N from a display name ending in
// " - Server #N".
func serverNameSuffix(name string) (int, bool) {
	marker := " - Server #"
	idx := strings.LastIndex(name, marker)
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+len(marker):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
