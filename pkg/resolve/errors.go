// pkg/resolve/errors.go
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/omni-pm/omni/pkg/core"
)

var (
	// ErrDependencyCycle indicates the requested packages form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrVersionConflict indicates constraints on the same logical name
	// cannot all be satisfied.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnsatisfiable indicates no backend can provide a requested package.
	ErrUnsatisfiable = errors.New("no backend can satisfy package")
)

// CycleError names the members of a detected dependency cycle.
type CycleError struct {
	Members []core.PackageRef
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Members))
	for i, m := range e.Members {
		names[i] = m.String()
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(names, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrDependencyCycle }

// ConflictError names the constraints that cannot be reconciled for one
// logical package name. The resolver never guesses a winner.
type ConflictError struct {
	Name        string
	Constraints []string
	Available   string // version the backend reports, if any
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("version conflict on %s: constraints %s", e.Name, strings.Join(e.Constraints, " vs "))
	if e.Available != "" {
		msg += fmt.Sprintf(" (available: %s)", e.Available)
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }
