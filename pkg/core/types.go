// pkg/core/types.go
package core

import (
	"fmt"
	"time"
)

// PackageRef identifies a package within one backend. The same logical
// package may have a different ref per backend; refs are never assumed
// equal across backends.
type PackageRef struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
}

// String renders the ref as "name@backend".
func (r PackageRef) String() string {
	return fmt.Sprintf("%s@%s", r.Name, r.Backend)
}

// IsZero reports whether the ref is empty.
func (r PackageRef) IsZero() bool {
	return r.Name == "" && r.Backend == ""
}

// PackageRecord is cached metadata for one package as last observed from
// its backend.
type PackageRecord struct {
	Ref          PackageRef   `json:"ref"`
	Version      string       `json:"version,omitempty"`
	Description  string       `json:"description,omitempty"`
	Dependencies []PackageRef `json:"dependencies,omitempty"`
	Installed    bool         `json:"installed"`
	FetchedAt    time.Time    `json:"fetched_at"`

	// Stale is set on records read from the cache past the freshness
	// window. Stale records are search hints only, never planning input.
	Stale bool `json:"-"`
}

// Fresh reports whether the record may be trusted for planning decisions.
func (r *PackageRecord) Fresh(window time.Duration) bool {
	if r.FetchedAt.IsZero() {
		return false
	}
	return time.Since(r.FetchedAt) < window
}

// StepKind is the kind of backend-level action a step performs.
type StepKind string

const (
	StepInstall StepKind = "install"
	StepRemove  StepKind = "remove"
	StepUpdate  StepKind = "update"
)

// OperationStep is one backend-level action within a plan.
type OperationStep struct {
	Kind    StepKind   `json:"kind"`
	Target  PackageRef `json:"target"`
	Version string     `json:"version,omitempty"`

	// Reversible is true only when Undo is an exact compensating action
	// the backend can verify. False is the conservative default.
	Reversible bool           `json:"reversible"`
	Undo       *OperationStep `json:"undo,omitempty"`
}

// Describe renders the step for audit entries and reports.
func (s OperationStep) Describe() string {
	if s.Version != "" {
		return fmt.Sprintf("%s %s=%s", s.Kind, s.Target, s.Version)
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Target)
}

// OperationPlan is an ordered list of steps; dependencies always precede
// their dependents.
type OperationPlan []OperationStep

// Validate checks the topological invariant: no step's target may appear
// as a dependency of an earlier step.
func (p OperationPlan) Validate(deps map[PackageRef][]PackageRef) error {
	seen := make(map[PackageRef]bool, len(p))
	for i, step := range p {
		for _, dep := range deps[step.Target] {
			if !inPlan(p, dep) {
				continue
			}
			if !seen[dep] {
				return fmt.Errorf("plan step %d (%s) precedes its dependency %s", i, step.Target, dep)
			}
		}
		seen[step.Target] = true
	}
	return nil
}

func inPlan(p OperationPlan, ref PackageRef) bool {
	for _, s := range p {
		if s.Target == ref {
			return true
		}
	}
	return false
}

// Refs returns every target ref in the plan, in plan order.
func (p OperationPlan) Refs() []PackageRef {
	refs := make([]PackageRef, 0, len(p))
	for _, s := range p {
		refs = append(refs, s.Target)
	}
	return refs
}

// TxnState is the lifecycle state of a transaction.
type TxnState string

const (
	TxnPending             TxnState = "pending"
	TxnCommitted           TxnState = "committed"
	TxnRolledBack          TxnState = "rolled-back"
	TxnPartiallyRolledBack TxnState = "partially-rolled-back"
)

// Terminal reports whether the state admits no further transitions.
func (s TxnState) Terminal() bool {
	return s != TxnPending
}

// StepOutcome records how one executed step ended.
type StepOutcome string

const (
	OutcomeSucceeded  StepOutcome = "succeeded"
	OutcomeFailed     StepOutcome = "failed"
	OutcomeRolledBack StepOutcome = "rolled-back"
	OutcomeUndoFailed StepOutcome = "undo-failed"
)

// StepResult pairs an executed step with its outcome.
type StepResult struct {
	Step    OperationStep
	Outcome StepOutcome
	Err     error
}

// Transaction groups a plan's steps into an atomic unit. The executed
// list is owned exclusively by the transaction manager; nothing else
// appends to it.
type Transaction struct {
	ID       string
	Plan     OperationPlan
	Executed []StepResult
	State    TxnState
	Started  time.Time
	Finished time.Time
}

// PrivilegeGrant is an ephemeral elevation token. It must be released on
// every exit path of the operation it was acquired for.
type PrivilegeGrant struct {
	Scope      string
	AcquiredAt time.Time
	released   bool
}

// NewGrant creates an unreleased grant for the given scope.
func NewGrant(scope string) *PrivilegeGrant {
	return &PrivilegeGrant{Scope: scope, AcquiredAt: time.Now()}
}

// Release marks the grant released. Releasing twice is a no-op.
func (g *PrivilegeGrant) Release() {
	g.released = true
}

// Released reports whether the grant has been released.
func (g *PrivilegeGrant) Released() bool {
	return g.released
}
