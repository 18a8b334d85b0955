// pkg/txn/locks.go
package txn

import (
	"context"
	"sort"
	"sync"

	"github.com/omni-pm/omni/pkg/core"
)

// lockTable enforces at-most-one in-flight transaction per package ref.
// A transaction blocks cooperatively on a held ref instead of failing,
// so incidental overlap never surfaces as a user-visible error.
type lockTable struct {
	mu   sync.Mutex
	held map[core.PackageRef]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[core.PackageRef]chan struct{})}
}

// acquireAll locks every ref in the set before returning. Refs are
// locked in sorted order so two transactions with overlapping sets
// cannot deadlock. The returned release function is safe to call once.
func (t *lockTable) acquireAll(ctx context.Context, refs []core.PackageRef) (func(), error) {
	sorted := dedupe(refs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Backend != sorted[j].Backend {
			return sorted[i].Backend < sorted[j].Backend
		}
		return sorted[i].Name < sorted[j].Name
	})

	var acquired []core.PackageRef
	release := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, ref := range acquired {
			if ch, ok := t.held[ref]; ok {
				delete(t.held, ref)
				close(ch)
			}
		}
	}

	for _, ref := range sorted {
		if err := t.acquire(ctx, ref); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, ref)
	}
	return release, nil
}

// acquire blocks until the ref is free or ctx is cancelled.
func (t *lockTable) acquire(ctx context.Context, ref core.PackageRef) error {
	for {
		t.mu.Lock()
		holder, busy := t.held[ref]
		if !busy {
			t.held[ref] = make(chan struct{})
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-holder:
			// Holder released; try again.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func dedupe(refs []core.PackageRef) []core.PackageRef {
	seen := make(map[core.PackageRef]bool, len(refs))
	out := make([]core.PackageRef, 0, len(refs))
	for _, ref := range refs {
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}
