// Package testutil provides shared test helpers: a temporary store, a
// scripted command runner, and a counting elevator.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/omni-pm/omni/pkg/executor"
	"github.com/omni-pm/omni/pkg/store"
)

// TestStore creates a temporary SQLite store that is automatically
// cleaned up with the test's temp directory.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "omni-test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Response scripts the runner's answer for commands matching an
// executable and argument prefix.
type Response struct {
	Executable string
	ArgPrefix  []string
	Result     executor.Result
	Err        error
}

// FakeRunner returns scripted responses instead of spawning processes
// and records every command it was asked to run.
type FakeRunner struct {
	mu        sync.Mutex
	Responses []Response
	Calls     []executor.Command
}

// Run matches the command against the scripted responses in order. An
// unmatched command succeeds with empty output.
func (r *FakeRunner) Run(ctx context.Context, cmd executor.Command) (executor.Result, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, cmd)
	r.mu.Unlock()

	for _, resp := range r.Responses {
		if resp.Executable != cmd.Executable {
			continue
		}
		if !hasPrefix(cmd.Args, resp.ArgPrefix) {
			continue
		}
		return resp.Result, resp.Err
	}
	return executor.Result{}, nil
}

// CallCount returns how many commands were run against an executable.
func (r *FakeRunner) CallCount(executable string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Executable == executable {
			n++
		}
	}
	return n
}

func hasPrefix(args, prefix []string) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}

// FakeElevator counts privilege requests and drops; the counts must
// match after every operation.
type FakeElevator struct {
	mu       sync.Mutex
	Requests int
	Drops    int
	Fail     error // returned from Request when set
}

func (e *FakeElevator) Request(ctx context.Context, scope string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Fail != nil {
		return e.Fail
	}
	e.Requests++
	return nil
}

func (e *FakeElevator) Drop(scope string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Drops++
}

// Balanced reports whether every request was paired with a drop.
func (e *FakeElevator) Balanced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Requests == e.Drops
}
