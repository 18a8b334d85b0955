// pkg/backend/backend.go

// Package backend defines the interface every package manager adapter
// implements. Adapters translate abstract operations into backend CLI
// invocations through the secure executor and parse the output into
// canonical records; nothing outside an adapter ever sees raw backend
// output. New backends are added by implementing Backend, never by
// modifying shared logic.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/omni-pm/omni/pkg/core"
)

// ErrParse indicates backend output could not be parsed. It always means
// step failure, never success with unknown state.
var ErrParse = errors.New("unrecognized backend output")

// ErrNotAvailable indicates the backend's binary is not present.
var ErrNotAvailable = errors.New("backend not available")

// ParseError wraps ErrParse with the offending output line.
func ParseError(backend, line string) error {
	return fmt.Errorf("%s: %w: %q", backend, ErrParse, line)
}

// OperationOutcome is what an adapter reports after a mutation. Reversible
// is true only when Undo is an exact compensating step the backend can
// verify; false is the conservative default.
type OperationOutcome struct {
	Ref        core.PackageRef
	Version    string
	Reversible bool
	Undo       *core.OperationStep
}

// Backend is the capability interface implemented once per package
// manager. All shell-outs go through the shared executor.Runner the
// adapter was constructed with.
type Backend interface {
	// Name returns the backend identifier (e.g. "apt", "brew").
	Name() string

	// Available reports whether the backend can be used on this system.
	Available(ctx context.Context) bool

	// Search searches the backend for packages matching the query.
	Search(ctx context.Context, query string) ([]core.PackageRecord, error)

	// Info returns metadata for a single package, including dependencies.
	Info(ctx context.Context, name string) (*core.PackageRecord, error)

	// Install installs a package, optionally at a specific version.
	Install(ctx context.Context, ref core.PackageRef, version string) (*OperationOutcome, error)

	// Remove removes a package.
	Remove(ctx context.Context, ref core.PackageRef) (*OperationOutcome, error)

	// QueryInstalled lists packages currently installed via this backend.
	QueryInstalled(ctx context.Context) ([]core.PackageRecord, error)
}

// Set is the collection of registered adapters, keyed by name.
type Set struct {
	backends map[string]Backend
}

// NewSet creates an adapter set from the given backends.
func NewSet(backends ...Backend) *Set {
	s := &Set{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		s.backends[b.Name()] = b
	}
	return s
}

// Get returns the adapter for the named backend.
func (s *Set) Get(name string) (Backend, error) {
	b, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotAvailable)
	}
	return b, nil
}

// Names returns the registered backend names in unspecified order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	return names
}

// All returns every registered adapter.
func (s *Set) All() []Backend {
	all := make([]Backend, 0, len(s.backends))
	for _, b := range s.backends {
		all = append(all, b)
	}
	return all
}
