// pkg/nixpkg/adapter.go

// Package nixpkg adapts nix profiles (flakes-style CLI) to the backend
// interface. Installed state is read from `nix profile list`, keyed by
// store path; a remove by store path compensates an install exactly,
// which is what makes nix the one backend with fully reversible installs
// and removes.
package nixpkg

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
const BackendName = "nix"

// Adapter implements backend.Backend for nix profiles.
type Adapter struct {
	runner  executor.Runner
	timeout time.Duration
}

// New creates a nix adapter.
func New(runner executor.Runner, cfg *core.Config) *Adapter {
	return &Adapter{runner: runner, timeout: cfg.ExecTimeout}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string { return BackendName }

// Available reports whether the nix CLI is usable on this system.
func (a *Adapter) Available(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "nix",
		Args:       []string{"--version"},
		Timeout:    10 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Search searches nixpkgs.
func (a *Adapter) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "nix",
		Args:       []string{"search", "nixpkgs", query, "--json"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("nix search: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nix search: exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseSearch(res.Stdout)
}

// Info resolves a single attribute via an exact search, then overlays
// the installed state from the profile. Search only knows what nixpkgs
// offers; the profile is what decides whether the package is in place.
func (a *Adapter) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	records, err := a.Search(ctx, "^"+name+"$")
	if err != nil {
		return nil, err
	}
	var record *core.PackageRecord
	for i := range records {
		if records[i].Ref.Name == name {
			record = &records[i]
			break
		}
	}
	if record == nil {
		return nil, fmt.Errorf("%s: %w", name, backend.ErrNotAvailable)
	}

	installed, err := a.QueryInstalled(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range installed {
		if p.Ref.Name == name {
			record.Installed = true
			if p.Version != "" {
				record.Version = p.Version
			}
			break
		}
	}
	return record, nil
}

// Install installs an attribute into the default profile. The undo
// removes the exact store path that was added.
func (a *Adapter) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "nix",
		Args:       []string{"profile", "install", "nixpkgs#" + ref.Name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("nix install %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nix install %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	installed, err := a.QueryInstalled(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range installed {
		if record.Ref.Name != ref.Name {
			continue
		}
		if version != "" && record.Version != version {
			return nil, fmt.Errorf("nix install %s: wanted version %s, got %s", ref.Name, version, record.Version)
		}
		return &backend.OperationOutcome{
			Ref:        ref,
			Version:    record.Version,
			Reversible: true,
			Undo: &core.OperationStep{
				Kind:    core.StepRemove,
				Target:  ref,
				Version: record.Version,
			},
		}, nil
	}

	return nil, backend.ParseError(BackendName, "package missing from profile after install")
}

// Remove removes an attribute from the default profile. Reinstalling the
// same attribute from the pinned registry reproduces the store path, so
// removal is reversible when the version is known.
func (a *Adapter) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	previous := ""
	if installed, err := a.QueryInstalled(ctx); err == nil {
		for _, record := range installed {
			if record.Ref.Name == ref.Name {
				previous = record.Version
			}
		}
	}

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "nix",
		Args:       []string{"profile", "remove", ref.Name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("nix remove %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nix remove %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	outcome := &backend.OperationOutcome{Ref: ref, Version: previous}
	if previous != "" {
		outcome.Reversible = true
		outcome.Undo = &core.OperationStep{
			Kind:    core.StepInstall,
			Target:  ref,
			Version: previous,
		}
	}
	return outcome, nil
}

// QueryInstalled lists profile packages, parsed from store paths.
func (a *Adapter) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "nix",
		Args:       []string{"profile", "list"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("nix query installed: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nix query installed: exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseProfileList(res.Stdout)
}

var _ backend.Backend = (*Adapter)(nil)
