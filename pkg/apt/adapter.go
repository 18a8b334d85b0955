// pkg/apt/adapter.go

// Package apt adapts the Debian/Ubuntu apt tooling to the backend
// interface. Searches prefer the local Packages indexes under
// /var/lib/apt/lists and fall back to apt-cache; mutations go through
// apt-get with exact version pins so installs are reversible.
package apt

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
const BackendName = "apt"

// Adapter implements backend.Backend for apt.
type Adapter struct {
	runner  executor.Runner
	elevate bool
	timeout time.Duration
	listDir string // apt index directory, overridable in tests
}

// New creates an apt adapter.
func New(runner executor.Runner, cfg *core.Config) *Adapter {
	return &Adapter{
		runner:  runner,
		elevate: cfg.PolicyFor(BackendName) == core.ElevateMutations,
		timeout: cfg.ExecTimeout,
		listDir: DefaultListDir,
	}
}

// Name returns the backend identifier.
func (a *Adapter) Name() string { return BackendName }

// Available reports whether apt-get is usable on this system.
func (a *Adapter) Available(ctx context.Context) bool {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "apt-get",
		Args:       []string{"--version"},
		Timeout:    10 * time.Second,
	})
	return err == nil && res.ExitCode == 0
}

// Search searches for packages, reading local Packages.xz indexes when
// present and falling back to a live apt-cache query.
func (a *Adapter) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	if records, err := searchIndexes(a.listDir, query); err == nil && len(records) > 0 {
		return records, nil
	}

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "apt-cache",
		Args:       []string{"search", query},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("apt search: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("apt search: apt-cache exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseSearch(res.Stdout)
}

// Info returns metadata for one package, including its dependency list
// and whether it is currently installed.
func (a *Adapter) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "apt-cache",
		Args:       []string{"show", name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("apt info: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: %w", name, backend.ErrNotAvailable)
	}

	record, err := parseShow(res.Stdout)
	if err != nil {
		return nil, err
	}

	if version, ok, err := a.installedVersion(ctx, name); err == nil && ok {
		record.Installed = true
		record.Version = version
	}
	record.FetchedAt = time.Now()
	return record, nil
}

// Install installs a package, pinned to an exact version when one is
// given. The undo is an exact-version remove, so the outcome is
// reversible.
func (a *Adapter) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	target := ref.Name
	if version != "" {
		target = ref.Name + "=" + version
	}

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "apt-get",
		Args:       []string{"install", "-y", target},
		Timeout:    a.timeout,
		Elevate:    a.elevate,
	})
	if err != nil {
		return nil, fmt.Errorf("apt install %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("apt install %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	installed := version
	if installed == "" {
		if v, ok, err := a.installedVersion(ctx, ref.Name); err == nil && ok {
			installed = v
		}
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

// Remove removes a package. The previously installed version is recorded
// so the undo can reinstall it exactly.
func (a *Adapter) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	previous, _, err := a.installedVersion(ctx, ref.Name)
	if err != nil {
		previous = ""
	}

	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "apt-get",
		Args:       []string{"remove", "-y", ref.Name},
		Timeout:    a.timeout,
		Elevate:    a.elevate,
	})
	if err != nil {
		return nil, fmt.Errorf("apt remove %s: %w", ref.Name, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("apt remove %s: exited %d: %s", ref.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
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

// QueryInstalled lists installed packages via dpkg-query.
func (a *Adapter) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "dpkg-query",
		Args:       []string{"-W", "-f", "${Package}\t${Version}\t${binary:Summary}\n"},
		Timeout:    a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("apt query installed: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("apt query installed: dpkg-query exited %d", res.ExitCode)
	}
	return parseInstalled(res.Stdout)
}

// installedVersion returns the installed version of a package, if any.
func (a *Adapter) installedVersion(ctx context.Context, name string) (string, bool, error) {
	res, err := a.runner.Run(ctx, executor.Command{
		Executable: "dpkg-query",
		Args:       []string{"-W", "-f", "${Version}\t${db:Status-Status}", name},
		Timeout:    a.timeout,
	})
	if err != nil {
		return "", false, err
	}
	if res.ExitCode != 0 {
		return "", false, nil // not installed
	}

	fields := strings.SplitN(strings.TrimSpace(res.Stdout), "\t", 2)
	if len(fields) != 2 {
		return "", false, backend.ParseError(BackendName, res.Stdout)
	}
	return fields[0], fields[1] == "installed", nil
}

var _ backend.Backend = (*Adapter)(nil)
