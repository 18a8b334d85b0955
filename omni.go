// omni.go
package omni

import (
	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/engine"
	"github.com/omni-pm/omni/pkg/executor"
	"github.com/omni-pm/omni/pkg/resolve"
	"github.com/omni-pm/omni/pkg/store"
	"github.com/omni-pm/omni/pkg/txn"
)

// Re-export core types for convenience
type (
	Config         = core.Config
	PackageRef     = core.PackageRef
	PackageRecord  = core.PackageRecord
	OperationStep  = core.OperationStep
	OperationPlan  = core.OperationPlan
	StepKind       = core.StepKind
	Transaction    = core.Transaction
	PrivilegeGrant = core.PrivilegeGrant

	Request           = resolve.Request
	TransactionResult = txn.Result
	RollbackReport    = txn.RollbackReport
	AuditEntry        = store.AuditEntry

	Engine  = engine.Engine
	Options = engine.Options

	Backend = backend.Backend
	Runner  = executor.Runner
	Command = executor.Command
)

// Re-export step kinds
const (
	StepInstall = core.StepInstall
	StepRemove  = core.StepRemove
	StepUpdate  = core.StepUpdate
)

// Re-export transaction states
const (
	TxnPending             = core.TxnPending
	TxnCommitted           = core.TxnCommitted
	TxnRolledBack          = core.TxnRolledBack
	TxnPartiallyRolledBack = core.TxnPartiallyRolledBack
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// LoadConfig loads configuration from file, falling back to defaults
func LoadConfig(path string) (*Config, error) {
	return core.LoadConfig(path)
}

// NewEngine creates an engine with default wiring
func NewEngine(cfg *Config) (*Engine, error) {
	return engine.New(cfg, engine.Options{})
}
