package core

import (
	"testing"
	"time"
)

func TestPackageRefString(t *testing.T) {
	ref := PackageRef{Name: "ripgrep", Backend: "apt"}
	if got := ref.String(); got != "ripgrep@apt" {
		t.Errorf("String() = %q, want %q", got, "ripgrep@apt")
	}
	if !(PackageRef{}).IsZero() {
		t.Error("zero ref should report IsZero")
	}
	if ref.IsZero() {
		t.Error("non-zero ref should not report IsZero")
	}
}

func TestRecordFreshness(t *testing.T) {
	window := time.Hour

	fresh := PackageRecord{FetchedAt: time.Now().Add(-time.Minute)}
	if !fresh.Fresh(window) {
		t.Error("record fetched a minute ago should be fresh")
	}

	stale := PackageRecord{FetchedAt: time.Now().Add(-2 * time.Hour)}
	if stale.Fresh(window) {
		t.Error("record fetched two hours ago should be stale")
	}

	never := PackageRecord{}
	if never.Fresh(window) {
		t.Error("record never fetched should not be fresh")
	}
}

func TestStepDescribe(t *testing.T) {
	ref := PackageRef{Name: "jq", Backend: "brew"}

	with := OperationStep{Kind: StepInstall, Target: ref, Version: "1.7"}
	if got := with.Describe(); got != "install jq@brew=1.7" {
		t.Errorf("Describe() = %q", got)
	}

	without := OperationStep{Kind: StepRemove, Target: ref}
	if got := without.Describe(); got != "remove jq@brew" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestPlanValidate(t *testing.T) {
	a := PackageRef{Name: "a", Backend: "apt"}
	b := PackageRef{Name: "b", Backend: "apt"}
	deps := map[PackageRef][]PackageRef{a: {b}}

	good := OperationPlan{
		{Kind: StepInstall, Target: b},
		{Kind: StepInstall, Target: a},
	}
	if err := good.Validate(deps); err != nil {
		t.Errorf("dependency-first plan should validate: %v", err)
	}

	bad := OperationPlan{
		{Kind: StepInstall, Target: a},
		{Kind: StepInstall, Target: b},
	}
	if err := bad.Validate(deps); err == nil {
		t.Error("dependent-first plan should fail validation")
	}
}

func TestPlanValidateIgnoresExternalDeps(t *testing.T) {
	a := PackageRef{Name: "a", Backend: "apt"}
	external := PackageRef{Name: "libc6", Backend: "apt"}
	deps := map[PackageRef][]PackageRef{a: {external}}

	// Dependencies outside the plan are assumed already present.
	plan := OperationPlan{{Kind: StepInstall, Target: a}}
	if err := plan.Validate(deps); err != nil {
		t.Errorf("external dependency should not invalidate plan: %v", err)
	}
}

func TestTxnStateTerminal(t *testing.T) {
	tests := []struct {
		state TxnState
		want  bool
	}{
		{TxnPending, false},
		{TxnCommitted, true},
		{TxnRolledBack, true},
		{TxnPartiallyRolledBack, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestGrantRelease(t *testing.T) {
	g := NewGrant("apt")
	if g.Released() {
		t.Error("new grant should not be released")
	}
	g.Release()
	if !g.Released() {
		t.Error("grant should be released after Release")
	}
	g.Release() // second release is a no-op
	if !g.Released() {
		t.Error("double release should stay released")
	}
}
