// pkg/executor/executor.go

// Package executor is the single choke point through which every external
// process is spawned. Executables come from a compile-time allow-list,
// arguments are validated and passed as a discrete vector, and every call
// either waits for exit or times out. No shell is ever involved.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

var (
	// ErrDenied indicates the executable is not on the allow-list.
	ErrDenied = errors.New("execution denied")

	// ErrTimeout indicates the child process exceeded its deadline.
	ErrTimeout = errors.New("execution timeout")

	// ErrSpawnFailed indicates the child process could not be started.
	ErrSpawnFailed = errors.New("process spawn failed")
)

// allowedExecutables is the complete set of programs the engine may spawn.
// Adding a backend means adding its binaries here.
var allowedExecutables = map[string]bool{
	"apt-get":    true,
	"apt-cache":  true,
	"dpkg-query": true,
	"brew":       true,
	"winget":     true,
	"pacman":     true,
	"nix":        true,
	"sudo":       true,
}

// Allowed reports whether the executable is on the allow-list.
func Allowed(executable string) bool {
	return allowedExecutables[executable]
}

// Command describes one child process invocation.
type Command struct {
	Executable string        // Must be allow-listed
	Args       []string      // Passed as a vector, never joined into a shell string
	Timeout    time.Duration // Zero means the caller's context bounds the run

	// Elevate runs the command under "sudo -n". The target executable is
	// still checked against the allow-list; sudo never launders a denied
	// program. Non-interactive so a missing grant fails instead of
	// prompting mid-transaction.
	Elevate bool
}

// Result is the observed outcome of a completed child process. A non-zero
// exit code is data, not an error; callers decide what it means.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs commands. The engine is agnostic to whether the runner spawns
// locally or hands the command to a remote transport, as long as the
// implementation honors the same allow-list and timeout contract.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Local runs commands as local child processes.
type Local struct{}

// NewLocal creates a local runner.
func NewLocal() *Local {
	return &Local{}
}

// Run spawns exactly one child process and waits for exit or timeout.
func (l *Local) Run(ctx context.Context, cmd Command) (Result, error) {
	if !Allowed(cmd.Executable) {
		return Result{}, fmt.Errorf("%q: %w", cmd.Executable, ErrDenied)
	}
	if err := ValidateArgs(cmd.Args); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDenied, err)
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	executable := cmd.Executable
	args := cmd.Args
	if cmd.Elevate && executable != "sudo" {
		args = append([]string{"-n", executable}, args...)
		executable = "sudo"
	}

	var stdout, stderr bytes.Buffer
	child := exec.CommandContext(ctx, executable, args...)
	child.Stdout = &stdout
	child.Stderr = &stderr

	err := child.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, fmt.Errorf("%s: %w", cmd.Executable, ErrTimeout)
	}
	if ctx.Err() == context.Canceled {
		return Result{}, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Process ran and exited non-zero; that is the caller's call.
			return Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return Result{}, fmt.Errorf("%s: %w: %v", cmd.Executable, ErrSpawnFailed, err)
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}, nil
}

var _ Runner = (*Local)(nil)
