// pkg/txn/txn.go

// Package txn wraps an operation plan in an atomic unit: either every
// step commits, or the already-executed steps are rolled back in reverse
// order and the result says exactly what state each package was left in.
// Every step transition is appended to the durable audit log before the
// in-memory transaction changes, so a crash mid-transaction leaves a log
// consistent with what was attempted.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/privilege"
	"github.com/omni-pm/omni/pkg/store"
)

// ErrDone indicates the transaction already reached a terminal state.
var ErrDone = errors.New("transaction already terminal")

// RollbackReport says what rollback achieved. Indeterminate lists refs
// whose state could not be restored; claiming a full rollback when a
// step was irreversible would be a lie, so they are always enumerated.
type RollbackReport struct {
	Undone        []core.PackageRef
	Indeterminate []core.PackageRef
}

// Result is the outcome of executing one transaction.
type Result struct {
	TxnID    string
	State    core.TxnState
	Executed []core.StepResult

	// Failed is the step that broke the transaction, nil on commit.
	Failed *core.StepResult

	// Rollback is set whenever a rollback was attempted.
	Rollback *RollbackReport
}

// Committed reports whether every step succeeded.
func (r *Result) Committed() bool { return r.State == core.TxnCommitted }

// Manager executes transactions. Steps within one transaction run
// strictly sequentially; independent transactions may run concurrently
// through the worker pool, serialized per package ref by the lock table.
type Manager struct {
	backends    *backend.Set
	priv        *privilege.Manager
	db          *store.DB
	locks       *lockTable
	maxInFlight int
	logger      *log.Logger
}

// NewManager creates a transaction manager.
func NewManager(backends *backend.Set, priv *privilege.Manager, db *store.DB, maxInFlight int, logger *log.Logger) *Manager {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Manager{
		backends:    backends,
		priv:        priv,
		db:          db,
		locks:       newLockTable(),
		maxInFlight: maxInFlight,
		logger:      logger,
	}
}

// Begin creates a transaction for an accepted plan.
func (m *Manager) Begin(plan core.OperationPlan) *core.Transaction {
	return &core.Transaction{
		ID:    uuid.NewString(),
		Plan:  plan,
		State: core.TxnPending,
	}
}

// Execute runs the transaction's steps in order. Per-ref locks are held
// from before the first step until the transaction reaches a terminal
// state. Cancellation mid-flight converts into a rollback of what ran.
func (m *Manager) Execute(ctx context.Context, t *core.Transaction) (*Result, error) {
	if t.State.Terminal() {
		return nil, fmt.Errorf("%s: %w", t.ID, ErrDone)
	}

	release, err := m.locks.acquireAll(ctx, t.Plan.Refs())
	if err != nil {
		return nil, fmt.Errorf("acquiring locks for %s: %w", t.ID, err)
	}
	defer release()

	t.Started = time.Now()
	m.audit(t.ID, fmt.Sprintf("transaction started (%d steps)", len(t.Plan)), "started")

	for i := range t.Plan {
		step := t.Plan[i]

		// Cancellation between steps becomes a rollback, never an
		// abrupt halt with unrecorded state.
		if ctx.Err() != nil {
			failed := core.StepResult{Step: step, Outcome: OutcomeSkipped, Err: ctx.Err()}
			return m.fail(t, failed), nil
		}

		m.audit(t.ID, step.Describe(), "attempted")
		executed, err := m.runStep(ctx, step)
		if err != nil {
			m.audit(t.ID, step.Describe(), "failed: "+err.Error())
			failed := core.StepResult{Step: step, Outcome: core.OutcomeFailed, Err: err}
			return m.fail(t, failed), nil
		}

		m.audit(t.ID, executed.Step.Describe(), "succeeded")
		t.Executed = append(t.Executed, *executed)
		m.logger.Debug("step executed", "txn", t.ID, "step", executed.Step.Describe())
	}

	m.audit(t.ID, "transaction committed", "committed")
	t.State = core.TxnCommitted
	t.Finished = time.Now()
	return &Result{TxnID: t.ID, State: t.State, Executed: t.Executed}, nil
}

// OutcomeSkipped marks a step that never ran because the transaction was
// cancelled first.
const OutcomeSkipped core.StepOutcome = "skipped"

// fail rolls back what ran and produces the failure result.
func (m *Manager) fail(t *core.Transaction, failed core.StepResult) *Result {
	report := m.Rollback(t)
	t.Finished = time.Now()
	return &Result{
		TxnID:    t.ID,
		State:    t.State,
		Executed: t.Executed,
		Failed:   &failed,
		Rollback: report,
	}
}

// Rollback undoes executed steps in reverse order. The transaction ends
// RolledBack only if every executed step was reversible and every undo
// succeeded; otherwise PartiallyRolledBack with the leftovers enumerated.
func (m *Manager) Rollback(t *core.Transaction) *RollbackReport {
	report := &RollbackReport{}

	for i := len(t.Executed) - 1; i >= 0; i-- {
		result := &t.Executed[i]
		step := result.Step

		if !step.Reversible || step.Undo == nil {
			m.audit(t.ID, step.Describe(), "irreversible, state indeterminate")
			report.Indeterminate = append(report.Indeterminate, step.Target)
			continue
		}

		m.audit(t.ID, step.Undo.Describe(), "rollback attempted")
		// Rollback must run even when the caller's context is gone.
		if _, err := m.runStep(context.Background(), *step.Undo); err != nil {
			m.audit(t.ID, step.Undo.Describe(), "rollback failed: "+err.Error())
			result.Outcome = core.OutcomeUndoFailed
			report.Indeterminate = append(report.Indeterminate, step.Target)
			continue
		}

		m.audit(t.ID, step.Undo.Describe(), "rolled back")
		result.Outcome = core.OutcomeRolledBack
		report.Undone = append(report.Undone, step.Target)
	}

	if len(report.Indeterminate) == 0 {
		t.State = core.TxnRolledBack
	} else {
		t.State = core.TxnPartiallyRolledBack
	}
	m.audit(t.ID, fmt.Sprintf("rollback finished: %d undone, %d indeterminate",
		len(report.Undone), len(report.Indeterminate)), string(t.State))
	return report
}

// runStep dispatches one step to its backend adapter, elevating when the
// privilege policy requires it. The executed step carries the adapter's
// reversibility verdict and undo.
func (m *Manager) runStep(ctx context.Context, step core.OperationStep) (*core.StepResult, error) {
	b, err := m.backends.Get(step.Target.Backend)
	if err != nil {
		return nil, err
	}

	var outcome *backend.OperationOutcome
	run := func(*core.PrivilegeGrant) error {
		var err error
		switch step.Kind {
		case core.StepInstall, core.StepUpdate:
			outcome, err = b.Install(ctx, step.Target, step.Version)
		case core.StepRemove:
			outcome, err = b.Remove(ctx, step.Target)
		default:
			err = fmt.Errorf("unknown step kind %q", step.Kind)
		}
		return err
	}

	if m.priv.Needed(step.Kind, step.Target.Backend) {
		err = m.priv.WithPrivilege(ctx, step.Target.Backend, run)
	} else {
		err = run(nil)
	}
	if err != nil {
		return nil, err
	}

	executed := step
	executed.Version = outcome.Version
	executed.Reversible = outcome.Reversible
	executed.Undo = outcome.Undo
	// Updates never claim reversibility: the previous version is gone.
	if step.Kind == core.StepUpdate {
		executed.Reversible = false
		executed.Undo = nil
	}

	m.refreshCache(ctx, b, executed)

	return &core.StepResult{Step: executed, Outcome: core.OutcomeSucceeded}, nil
}

// refreshCache records the new observed state after a successful step.
// Cache trouble is never fatal to the operation.
func (m *Manager) refreshCache(ctx context.Context, b backend.Backend, step core.OperationStep) {
	record, err := b.Info(ctx, step.Target.Name)
	if err != nil {
		record = &core.PackageRecord{
			Ref:       step.Target,
			Version:   step.Version,
			FetchedAt: time.Now(),
		}
		record.Installed = step.Kind != core.StepRemove
	}
	if err := m.db.Put(*record); err != nil {
		m.logger.Warn("cache refresh failed", "ref", step.Target, "err", err)
	}
}

// ExecuteAll runs independent transactions through the worker pool.
// Transactions sharing refs serialize on the lock table; the pool only
// bounds how many are in flight at once.
func (m *Manager) ExecuteAll(ctx context.Context, txns []*core.Transaction) ([]*Result, error) {
	results := make([]*Result, len(txns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxInFlight)
	for i, t := range txns {
		i, t := i, t
		g.Go(func() error {
			res, err := m.Execute(ctx, t)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// audit appends to the durable log, before any in-memory state change.
// An unwritable audit log is loud but not fatal; refusing to operate
// would strand the package state worse than a log gap.
func (m *Manager) audit(txnID, description, outcome string) {
	if err := m.db.AppendAudit(txnID, description, outcome); err != nil {
		m.logger.Error("audit append failed", "txn", txnID, "err", err)
	}
}
