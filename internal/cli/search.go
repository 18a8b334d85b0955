// internal/cli/search.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/engine"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for packages across backends",
	Long: `Search cached metadata first, querying backends live when the cache
is stale. Stale results are marked; they are hints, not authority.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages across backends",
	RunE:  runList,
}

func runSearch(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	records, err := eng.Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No packages found.")
		return nil
	}

	for _, record := range records {
		marker := ""
		if record.Stale {
			marker = " (cached, stale)"
		}
		if record.Version != "" {
			fmt.Printf("%-40s %-15s %s%s\n", record.Ref, record.Version, record.Description, marker)
		} else {
			fmt.Printf("%-40s %s%s\n", record.Ref, record.Description, marker)
		}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	records, err := eng.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Printf("%-40s %s\n", record.Ref, record.Version)
	}
	fmt.Printf("\n%d packages installed\n", len(records))
	return nil
}
