// errors.go
package omni

import (
	"fmt"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/executor"
	"github.com/omni-pm/omni/pkg/privilege"
	"github.com/omni-pm/omni/pkg/resolve"
	"github.com/omni-pm/omni/pkg/store"
	"github.com/omni-pm/omni/pkg/txn"
)

// Sentinel errors, re-exported from the packages that raise them so
// callers can errors.Is against a single surface.
var (
	// ErrExecutionDenied indicates the executable is not on the allow-list
	ErrExecutionDenied = executor.ErrDenied

	// ErrExecutionTimeout indicates the child process exceeded its deadline
	ErrExecutionTimeout = executor.ErrTimeout

	// ErrProcessSpawnFailed indicates the child process could not be started
	ErrProcessSpawnFailed = executor.ErrSpawnFailed

	// ErrPrivilegeDenied indicates an elevation request was refused
	ErrPrivilegeDenied = privilege.ErrDenied

	// ErrAdapterParse indicates backend output could not be parsed
	ErrAdapterParse = backend.ErrParse

	// ErrBackendNotAvailable indicates the backend is not usable on this system
	ErrBackendNotAvailable = backend.ErrNotAvailable

	// ErrDependencyCycle indicates the requested packages form a cycle
	ErrDependencyCycle = resolve.ErrDependencyCycle

	// ErrVersionConflict indicates constraints that cannot all be satisfied
	ErrVersionConflict = resolve.ErrVersionConflict

	// ErrPackageNotFound indicates no backend can provide the package
	ErrPackageNotFound = resolve.ErrUnsatisfiable

	// ErrCacheIO indicates a cache read or write failed; treated as a miss
	ErrCacheIO = store.ErrCacheIO

	// ErrTransactionDone indicates the transaction already reached a terminal state
	ErrTransactionDone = txn.ErrDone
)

// Error wraps an error with additional context
type Error struct {
	Op      string // Operation that failed
	Package string // Package name if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
