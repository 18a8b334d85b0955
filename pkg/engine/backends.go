// pkg/engine/backends.go
package engine

import (
	"github.com/omni-pm/omni/pkg/apt"
	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/brew"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/executor"
	"github.com/omni-pm/omni/pkg/nixpkg"
	"github.com/omni-pm/omni/pkg/pacman"
	"github.com/omni-pm/omni/pkg/winget"
)

// DefaultBackends builds the full adapter set over one shared runner.
// Unavailable backends stay registered; availability is probed per call
// so a backend installed mid-session just starts working.
func DefaultBackends(runner executor.Runner, cfg *core.Config) *backend.Set {
	return backend.NewSet(
		apt.New(runner, cfg),
		brew.New(runner, cfg),
		pacman.New(runner, cfg),
		winget.New(runner, cfg),
		nixpkg.New(runner, cfg),
	)
}
