// pkg/winget/adapter.go

// Package winget adapts the Windows Package Manager to the backend
// interface. Winget prints fixed-width tables, so parsing derives column
// offsets from the header line rather than splitting on whitespace
// (names routinely contain spaces).
package winget

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
const BackendName = "winget"

// Adapter implements backend.Backend for winget.
type Adapter struct {
	runner  executor.Runner
	timeout time.Duration
}

// New creates a winget adapter.
func New(runner executor.Runner, cfg *core.Config) *Adapter {
	return &Adapter{runner: runner, timeout: cfg.ExecTimeout}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string { return BackendName }

// Available reports whether winget is usable on this system.
func (a *Adapter) Available(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"--version"},
		Timeout:    10 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Search searches the winget sources.
func (a *Adapter) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"search", query, "--disable-interactivity"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("winget search: %w", err)
	}
	if res.ExitCode != 0 {
		// "No package found" exits non-zero.
		if strings.Contains(res.Stdout, "No package found") {
			return nil, nil
		}
		return nil, fmt.Errorf("winget search: exited %d", res.ExitCode)
	}
	return parseTable(res.Stdout)
}

// Info returns metadata for one package by exact id, with the installed
// state read from the local list.
func (a *Adapter) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"show", "--exact", "--id", name, "--disable-interactivity"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("winget show: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: %w", name, backend.ErrNotAvailable)
	}
	record, err := parseShow(name, res.Stdout)
	if err != nil {
		return nil, err
	}

	if version, ok := a.installedVersion(ctx, name); ok {
		record.Installed = true
		if version != "" {
			record.Version = version
		}
	}
	return record, nil
}

// installedVersion checks `winget list` for an exact id. Winget exits
// non-zero when nothing matches, so any failure means not installed.
func (a *Adapter) installedVersion(ctx context.Context, id string) (string, bool) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"list", "--exact", "--id", id, "--disable-interactivity"},
		Timeout:    a.timeout,
	})
	if err != nil || res.ExitCode != 0 {
		return "", false
	}
	records, err := parseTable(res.Stdout)
	if err != nil {
		return "", false
	}
	for _, r := range records {
		if r.Ref.Name == id {
			return r.Version, true
		}
	}
	return "", false
}

// Install installs a package by exact id. Uninstalling the id removes
// exactly what was added, so a fresh install is reversible.
func (a *Adapter) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	args := []string{
		"install", "--exact", "--id", ref.Name,
		"--silent", "--accept-package-agreements", "--accept-source-agreements",
		"--disable-interactivity",
	}
	if version != "" {
		args = append(args, "--version", version)
	}

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       args,
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("winget install %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("winget install %s: exited %d", ref.Name, res.ExitCode)
	}

	return &backend.OperationOutcome{
		Ref:        ref,
		Version:    version,
		Reversible: true,
		Undo: &core.OperationStep{
			Kind:   core.StepRemove,
			Target: ref,
		},
	}, nil
}

// Remove uninstalls a package by exact id. The removed version is not
// reliably recoverable from winget, so removal is irreversible.
func (a *Adapter) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"uninstall", "--exact", "--id", ref.Name, "--silent", "--disable-interactivity"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("winget uninstall %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("winget uninstall %s: exited %d", ref.Name, res.ExitCode)
	}

	return &backend.OperationOutcome{Ref: ref, Reversible: false}, nil
}

// QueryInstalled lists installed packages.
func (a *Adapter) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "winget",
		Args:       []string{"list", "--disable-interactivity"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("winget list: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("winget list: exited %d", res.ExitCode)
	}

	records, err := parseTable(res.Stdout)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Installed = true
	}
	return records, nil
}

var _ backend.Backend = (*Adapter)(nil)
