// pkg/engine/engine.go

// Package engine is the call surface the front end uses: plan-and-execute
// for mutations, cache-aware search, installed-package listing, and audit
// log access. It owns the wiring between resolver, transaction manager,
// adapters, and the store.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/executor"
	"github.com/omni-pm/omni/pkg/platform"
	"github.com/omni-pm/omni/pkg/privilege"
	"github.com/omni-pm/omni/pkg/registry"
	"github.com/omni-pm/omni/pkg/resolve"
	"github.com/omni-pm/omni/pkg/store"
	"github.com/omni-pm/omni/pkg/txn"
)

// Engine orchestrates package operations across backends.
type Engine struct {
	cfg      *core.Config
	backends *backend.Set
	db       *store.DB
	resolver *resolve.Resolver
	txns     *txn.Manager
	registry *registry.Registry
	logger   *log.Logger
}

// Options override default wiring, mainly for tests.
type Options struct {
	Runner   executor.Runner
	Elevator privilege.Elevator
	Backends *backend.Set
	Logger   *log.Logger
}

// New creates an engine from configuration. The store is opened (and its
// schema applied) as part of construction.
func New(cfg *core.Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	runner := opts.Runner
	if runner == nil {
		runner = executor.NewLocal()
	}

	elevator := opts.Elevator
	if elevator == nil {
		elevator = privilege.NewSudoElevator(runner)
	}

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	backends := opts.Backends
	if backends == nil {
		backends = DefaultBackends(runner, cfg)
	}

	priv := privilege.NewManager(cfg, elevator, logger)

	e := &Engine{
		cfg:      cfg,
		backends: backends,
		db:       db,
		txns:     txn.NewManager(backends, priv, db, cfg.MaxConcurrentTransactions, logger),
		registry: registry.New(cfg.RegistryPath),
		logger:   logger,
	}
	e.resolver = resolve.New(&source{engine: e}, cfg.BackendPriority, logger)
	return e, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Store exposes the underlying database for maintenance commands and the
// cache invalidation watcher.
func (e *Engine) Store() *store.DB {
	return e.db
}

// Backends exposes the adapter set.
func (e *Engine) Backends() *backend.Set {
	return e.backends
}

// Registry exposes the name-mapping registry for maintenance commands.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Platform probes the adapters and reports what this system can run.
func (e *Engine) Platform(ctx context.Context) (*platform.Platform, error) {
	return platform.Detect(ctx, e.backends)
}

// PlanAndExecute resolves the requests into a plan and runs it as one
// transaction. Planning errors abort before anything executes; execution
// errors roll back and the result reports exactly what happened.
func (e *Engine) PlanAndExecute(ctx context.Context, requests []resolve.Request, kind core.StepKind) (*txn.Result, error) {
	plan, err := e.resolver.Plan(ctx, requests, kind)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		// Everything already satisfied; nothing to do is success.
		t := e.txns.Begin(plan)
		t.State = core.TxnCommitted
		return &txn.Result{TxnID: t.ID, State: core.TxnCommitted}, nil
	}

	t := e.txns.Begin(plan)
	e.logger.Info("executing transaction", "txn", t.ID, "steps", len(plan))
	return e.txns.Execute(ctx, t)
}

// Search consults the cache first; stale or missing results trigger a
// bounded live fan-out across available backends, with results written
// back to the cache. Stale cached entries are returned (marked stale)
// only when the live query cannot improve on them.
func (e *Engine) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	cached, err := e.db.SearchCached(query, e.cfg.FreshnessWindow)
	if err != nil {
		e.logger.Warn("cache search failed, falling back to live", "err", err)
		cached = nil
	}
	if len(cached) > 0 && allFresh(cached) {
		return cached, nil
	}

	live, err := e.liveSearch(ctx, query)
	if err != nil || len(live) == 0 {
		// Degrade to whatever the cache had rather than erroring a
		// read-only operation; stale entries stay marked.
		if len(cached) > 0 {
			return cached, nil
		}
		return live, err
	}
	return live, nil
}

// liveSearch fans out to every available backend concurrently.
func (e *Engine) liveSearch(ctx context.Context, query string) ([]core.PackageRecord, error) {
	var (
		mu      sync.Mutex
		results []core.PackageRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range e.backends.All() {
		b := b
		g.Go(func() error {
			if !b.Available(ctx) {
				return nil
			}
			records, err := b.Search(ctx, query)
			if err != nil {
				// One backend's failure must not sink the whole search.
				e.logger.Warn("backend search failed", "backend", b.Name(), "err", err)
				return nil
			}
			for _, record := range records {
				if err := e.db.Put(record); err != nil {
					e.logger.Debug("cache write failed", "ref", record.Ref, "err", err)
				}
			}
			mu.Lock()
			results = append(results, records...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Ref.Name != results[j].Ref.Name {
			return results[i].Ref.Name < results[j].Ref.Name
		}
		return results[i].Ref.Backend < results[j].Ref.Backend
	})
	return results, nil
}

// List returns installed packages across every available backend.
func (e *Engine) List(ctx context.Context) ([]core.PackageRecord, error) {
	var all []core.PackageRecord
	for _, b := range e.backends.All() {
		if !b.Available(ctx) {
			continue
		}
		records, err := b.QueryInstalled(ctx)
		if err != nil {
			e.logger.Warn("listing installed failed", "backend", b.Name(), "err", err)
			continue
		}
		for _, record := range records {
			if err := e.db.Put(record); err != nil {
				e.logger.Debug("cache write failed", "ref", record.Ref, "err", err)
			}
		}
		all = append(all, records...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Ref.Backend != all[j].Ref.Backend {
			return all[i].Ref.Backend < all[j].Ref.Backend
		}
		return all[i].Ref.Name < all[j].Ref.Name
	})
	return all, nil
}

// AuditTrail returns the durable log for one transaction.
func (e *Engine) AuditTrail(txnID string) ([]store.AuditEntry, error) {
	return e.db.AuditTrail(txnID)
}

// History returns recent audit entries across all transactions.
func (e *Engine) History(limit int) ([]store.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.db.RecentTransactions(limit)
}

func allFresh(records []core.PackageRecord) bool {
	for _, r := range records {
		if r.Stale {
			return false
		}
	}
	return true
}
