// pkg/privilege/privilege.go

// Package privilege models elevation as a scoped, explicitly released
// grant rather than a process-wide flag. Every operation acquires its own
// grant and releases it on every exit path, so the elevation window is
// bounded and auditable.
package privilege

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/executor"
)

// ErrDenied indicates an elevation request was refused.
var ErrDenied = errors.New("privilege denied")

// Elevator is the mechanism that actually grants elevation. The default
// checks sudo can run non-interactively; tests substitute a fake.
type Elevator interface {
	// Request asks for elevation for the given scope. A nil error means
	// the process may run elevated commands until Drop is called.
	Request(ctx context.Context, scope string) error

	// Drop ends the elevation. Must be safe to call after a failed Request.
	Drop(scope string)
}

// SudoElevator validates sudo availability through the secure executor.
type SudoElevator struct {
	runner executor.Runner
}

// NewSudoElevator creates an elevator backed by sudo.
func NewSudoElevator(runner executor.Runner) *SudoElevator {
	return &SudoElevator{runner: runner}
}

// Request verifies cached sudo credentials with a non-interactive probe.
func (e *SudoElevator) Request(ctx context.Context, scope string) error {
	res, err := e.runner.Run(ctx, executor.Command{
		Executable: "sudo",
		Args:       []string{"-n", "-v"},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: sudo refused for scope %s", ErrDenied, scope)
	}
	return nil
}

// Drop invalidates the cached sudo timestamp so the elevation window ends
// with the operation instead of lingering.
func (e *SudoElevator) Drop(scope string) {
	_, _ = e.runner.Run(context.Background(), executor.Command{
		Executable: "sudo",
		Args:       []string{"-k"},
	})
}

// Manager decides per operation whether elevation is needed, requests it,
// and guarantees de-escalation afterward. Grants are never cached across
// operations.
type Manager struct {
	cfg      *core.Config
	elevator Elevator
	logger   *log.Logger
}

// NewManager creates a privilege manager.
func NewManager(cfg *core.Config, elevator Elevator, logger *log.Logger) *Manager {
	return &Manager{cfg: cfg, elevator: elevator, logger: logger}
}

// Needed reports whether the given step kind on the given backend
// requires elevation. Reads never elevate.
func (m *Manager) Needed(kind core.StepKind, backend string) bool {
	switch m.cfg.PolicyFor(backend) {
	case core.ElevateNever:
		return false
	case core.ElevateMutations:
		return kind == core.StepInstall || kind == core.StepRemove || kind == core.StepUpdate
	}
	return true
}

// WithPrivilege acquires a grant for the scope, runs fn, and releases the
// grant on every exit path including panic. The lifecycle is
// Unprivileged -> Requesting -> Elevated -> Released; a denied request
// returns to Unprivileged, and Elevated never skips Released.
func (m *Manager) WithPrivilege(ctx context.Context, scope string, fn func(*core.PrivilegeGrant) error) error {
	if err := m.elevator.Request(ctx, scope); err != nil {
		return fmt.Errorf("requesting elevation for %s: %w", scope, err)
	}

	grant := core.NewGrant(scope)
	m.logger.Debug("privilege acquired", "scope", scope)

	defer func() {
		grant.Release()
		m.elevator.Drop(scope)
		m.logger.Debug("privilege released", "scope", scope)
	}()

	return fn(grant)
}
