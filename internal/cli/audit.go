// internal/cli/audit.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/engine"
)

var historyLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <txn-id>",
	Short: "Show the durable log for one transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transaction activity",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "maximum number of entries")
}

func runAudit(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	entries, err := eng.AuditTrail(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no audit entries for transaction %s", args[0])
	}

	for _, entry := range entries {
		fmt.Printf("%3d  %s  %-10s  %s\n",
			entry.Seq, entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Outcome, entry.Description)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	entries, err := eng.History(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No transaction history.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %-36s  %-10s  %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"), entry.TxnID, entry.Outcome, entry.Description)
	}
	return nil
}
