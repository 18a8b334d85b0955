// pkg/engine/source.go
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/omni-pm/omni/pkg/core"
)

// source implements resolve.Source on top of the cache and the live
// adapters. Stale cache entries never feed planning: a stale hit triggers
// a live query and a cache refresh first.
type source struct {
	engine *Engine
}

// Lookup returns a planning-grade record for a ref. Cache hits within
// the freshness window are served directly; anything else goes live.
func (s *source) Lookup(ctx context.Context, ref core.PackageRef) (*core.PackageRecord, error) {
	e := s.engine

	cached, err := e.db.Get(ref, e.cfg.FreshnessWindow)
	if err != nil {
		// Cache trouble is a miss, not a failure.
		e.logger.Warn("cache read failed", "ref", ref, "err", err)
	}
	if cached != nil && !cached.Stale {
		return cached, nil
	}

	b, err := e.backends.Get(ref.Backend)
	if err != nil {
		return nil, err
	}

	record, err := b.Info(ctx, e.registry.Resolve(ref.Name, ref.Backend))
	if err != nil {
		return nil, fmt.Errorf("live lookup %s: %w", ref, err)
	}
	// Keep the caller's name: the registry mapping is an adapter detail.
	record.Ref = ref

	if err := e.db.Put(*record); err != nil {
		e.logger.Debug("cache write failed", "ref", ref, "err", err)
	}
	return record, nil
}

// Candidates probes backends for the named package in deterministic
// order (configured priority, then lexical) and returns every backend
// that can provide it.
func (s *source) Candidates(ctx context.Context, name string) ([]core.PackageRef, error) {
	e := s.engine

	var refs []core.PackageRef
	for _, backendName := range s.probeOrder() {
		b, err := e.backends.Get(backendName)
		if err != nil {
			continue
		}
		if !b.Available(ctx) {
			continue
		}

		ref := core.PackageRef{Name: name, Backend: backendName}
		if cached, err := e.db.Get(ref, e.cfg.FreshnessWindow); err == nil && cached != nil && !cached.Stale {
			refs = append(refs, ref)
			continue
		}

		record, err := b.Info(ctx, e.registry.Resolve(name, backendName))
		if err != nil {
			continue // backend doesn't have it
		}
		record.Ref = ref
		if err := e.db.Put(*record); err != nil {
			e.logger.Debug("cache write failed", "ref", ref, "err", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// probeOrder is the configured priority followed by any registered
// backends the priority list doesn't mention, lexically.
func (s *source) probeOrder() []string {
	e := s.engine
	listed := make(map[string]bool, len(e.cfg.BackendPriority))
	order := make([]string, 0, len(e.cfg.BackendPriority))

	for _, name := range e.cfg.BackendPriority {
		listed[name] = true
		order = append(order, name)
	}

	var rest []string
	for _, name := range e.backends.Names() {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
