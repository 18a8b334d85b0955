// pkg/pacman/adapter.go

// Package pacman adapts Arch Linux's pacman to the backend interface.
package pacman

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/executor"
)

// BackendName identifies this adapter.
const BackendName = "pacman"

// Adapter implements backend.Backend for pacman.
type Adapter struct {
	runner  executor.Runner
	elevate bool
	timeout time.Duration
}

// New creates a pacman adapter.
func New(runner executor.Runner, cfg *core.Config) *Adapter {
	return &Adapter{
		runner:  runner,
		elevate: cfg.PolicyFor(BackendName) == core.ElevateMutations,
		timeout: cfg.ExecTimeout,
	}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string { return BackendName }

// Available reports whether pacman is usable on this system.
func (a *Adapter) Available(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"--version"},
		Timeout:    10 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Search queries the sync databases.
func (a *Adapter) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-Ss", query},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pacman search: %w", err)
	}
	if res.ExitCode != 0 {
		// pacman -Ss exits 1 when nothing matches.
		return nil, nil
	}
	return parseSearch(res.Stdout)
}

// Info returns metadata for one package from the sync databases.
func (a *Adapter) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-Si", name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pacman info: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: %w", name, backend.ErrNotAvailable)
	}

	record, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, err
	}

	if version, ok := a.installedVersion(ctx, name); ok {
		record.Installed = true
		record.Version = version
	}
	return record, nil
}

// Install installs a package. Pacman installs whatever the sync database
// holds; the installed version is read back afterwards so the undo is an
// exact-version remove.
func (a *Adapter) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-S", "--noconfirm", ref.Name},
		Timeout:    a.timeout,
		Elevate:    a.elevate,
	})
	if err != nil {
		return nil, fmt.Errorf("pacman install %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("pacman install %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	installed, ok := a.installedVersion(ctx, ref.Name)
	if !ok {
		return nil, backend.ParseError(BackendName, "package missing after install")
	}
	if version != "" && installed != version {
		return nil, fmt.Errorf("pacman install %s: wanted version %s, got %s", ref.Name, version, installed)
	}

	return &backend.OperationOutcome{
		Ref:        ref,
		Version:    installed,
		Reversible: true,
		Undo: &core.OperationStep{
			Kind:    core.StepRemove,
			Target:  ref,
			Version: installed,
		},
	}, nil
}

// Remove removes a package. Reinstalling the previous version from the
// sync database is only exact while the database still carries it, so
// removal is reported irreversible.
func (a *Adapter) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	previous, _ := a.installedVersion(ctx, ref.Name)

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-R", "--noconfirm", ref.Name},
		Timeout:    a.timeout,
		Elevate:    a.elevate,
	})
	if err != nil {
		return nil, fmt.Errorf("pacman remove %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("pacman remove %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	return &backend.OperationOutcome{Ref: ref, Version: previous, Reversible: false}, nil
}

// QueryInstalled lists installed packages via pacman -Q.
func (a *Adapter) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-Q"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pacman query installed: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("pacman query installed: exited %d", res.ExitCode)
	}
	return parseQuery(res.Stdout)
}

// installedVersion returns the installed version of a package, if any.
func (a *Adapter) installedVersion(ctx context.Context, name string) (string, bool) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "pacman",
		Args:       []string{"-Q", name},
		Timeout:    a.timeout,
	})
	if err != nil || res.ExitCode != 0 {
		return "", false
	}
	fields := strings.Fields(res.Stdout)
	if len(fields) != 2 {
		return "", false
	}
	return fields[1], true
}

var _ backend.Backend = (*Adapter)(nil)
