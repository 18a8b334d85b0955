// internal/cli/install.go
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/engine"
	"github.com/omni-pm/omni/pkg/resolve"
	"github.com/omni-pm/omni/pkg/txn"
)

var installCmd = &cobra.Command{
	Use:   "install [package[@constraint]...]",
	Short: "Install one or more packages as a single transaction",
	Long: `Install packages, resolving dependencies across backends first.

A constraint pins the acceptable version range:
  omni install ripgrep
  omni install 'nginx@>=1.24'
  omni install wget jq --backend=apt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

var removeCmd = &cobra.Command{
	Use:   "remove [package...]",
	Short: "Remove one or more packages as a single transaction",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

func runInstall(cmd *cobra.Command, args []string) error {
	return runTransaction(cmd.Context(), args, core.StepInstall)
}

func runRemove(cmd *cobra.Command, args []string) error {
	return runTransaction(cmd.Context(), args, core.StepRemove)
}

func runTransaction(ctx context.Context, args []string, kind core.StepKind) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	requests := make([]resolve.Request, 0, len(args))
	for _, arg := range args {
		name, constraint, _ := strings.Cut(arg, "@")
		requests = append(requests, resolve.Request{
			Name:       name,
			Backend:    backendFlag,
			Constraint: constraint,
		})
	}

	result, err := eng.PlanAndExecute(ctx, requests, kind)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	printResult(result)
	if !result.Committed() {
		return fmt.Errorf("transaction %s: %s", result.TxnID, result.State)
	}
	return nil
}

func printResult(result *txn.Result) {
	switch result.State {
	case core.TxnCommitted:
		if len(result.Executed) == 0 {
			fmt.Println("Nothing to do; everything already satisfied.")
			return
		}
		fmt.Printf("Transaction %s committed (%d steps):\n", result.TxnID, len(result.Executed))
		for _, step := range result.Executed {
			fmt.Printf("  ✓ %s\n", step.Step.Describe())
		}

	case core.TxnRolledBack:
		fmt.Printf("Transaction %s failed and was fully rolled back.\n", result.TxnID)
		fmt.Printf("  ✗ %s: %v\n", result.Failed.Step.Describe(), result.Failed.Err)
		for _, ref := range result.Rollback.Undone {
			fmt.Printf("  ↩ %s restored\n", ref)
		}

	case core.TxnPartiallyRolledBack:
		fmt.Printf("Transaction %s failed; rollback was PARTIAL.\n", result.TxnID)
		fmt.Printf("  ✗ %s: %v\n", result.Failed.Step.Describe(), result.Failed.Err)
		for _, ref := range result.Rollback.Undone {
			fmt.Printf("  ↩ %s restored\n", ref)
		}
		for _, ref := range result.Rollback.Indeterminate {
			fmt.Printf("  ? %s left in indeterminate state\n", ref)
		}
		fmt.Println("Review the packages above before retrying.")
	}
}
