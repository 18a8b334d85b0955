// pkg/brew/adapter.go

// Package brew adapts Homebrew to the backend interface. Metadata comes
// from brew's JSON output; mutations never elevate (Homebrew refuses to
// run as root).
package brew

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
const BackendName = "brew"

// Adapter implements backend.Backend for Homebrew.
type Adapter struct {
	runner  executor.Runner
	timeout time.Duration
}

// New creates a brew adapter.
func New(runner executor.Runner, cfg *core.Config) *Adapter {
	return &Adapter{runner: runner, timeout: cfg.ExecTimeout}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string { return BackendName }

// Available reports whether brew is usable on this system.
func (a *Adapter) Available(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"--version"},
		Timeout:    10 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Search searches formulae by name and description.
func (a *Adapter) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"search", "--desc", query},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("brew search: %w", err)
	}
	if res.ExitCode != 0 {
		// brew exits 1 on no matches; treat as empty rather than failure.
		if strings.Contains(res.Stderr, "No formulae or casks found") {
			return nil, nil
		}
		return nil, fmt.Errorf("brew search: exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseSearch(res.Stdout)
}

// Info returns metadata for one formula from brew's JSON API output.
func (a *Adapter) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"info", "--json=v2", name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("brew info: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: %w", name, backend.ErrNotAvailable)
	}
	return parseInfo(res.Stdout)
}

// Install installs a formula. Homebrew cannot pin arbitrary versions of
// core formulae, so a version request that doesn't match what brew ships
// is surfaced as an error after the fact rather than silently ignored.
func (a *Adapter) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"install", ref.Name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("brew install %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("brew install %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	record, err := a.Info(ctx, ref.Name)
	if err != nil {
		return nil, err
	}
	if version != "" && record.Version != version {
		return nil, fmt.Errorf("brew install %s: wanted version %s, got %s", ref.Name, version, record.Version)
	}

	// Uninstalling the formula removes exactly what this install added.
	return &backend.OperationOutcome{
		Ref:        ref,
		Version:    record.Version,
		Reversible: true,
		Undo: &core.OperationStep{
			Kind:   core.StepRemove,
			Target: ref,
		},
	}, nil
}

// Remove uninstalls a formula. Brew cannot reinstall an arbitrary old
// version, so removal is not reversible.
func (a *Adapter) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"uninstall", ref.Name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("brew uninstall %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("brew uninstall %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	return &backend.OperationOutcome{Ref: ref, Reversible: false}, nil
}

// QueryInstalled lists installed formulae with versions.
func (a *Adapter) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "brew",
		Args:       []string{"list", "--versions"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("brew list: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("brew list: exited %d", res.ExitCode)
	}
	return parseList(res.Stdout)
}

var _ backend.Backend = (*Adapter)(nil)
