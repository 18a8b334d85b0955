// internal/cli/registry.go
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/engine"
	"github.com/omni-pm/omni/pkg/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage canonical-name to backend-name mappings",
}

var registryAddCmd = &cobra.Command{
	Use:     "add <name> <backend>=<package>...",
	Short:   "Create or replace the mapping entry for a package",
	Example: "  omni registry add sqlite3 apt=libsqlite3-dev brew=sqlite",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runRegistryAdd,
}

var registryShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the mapping entry for a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryShow,
}

func init() {
	registryCmd.AddCommand(registryAddCmd)
	registryCmd.AddCommand(registryShowCmd)
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	entry := &registry.Entry{Name: args[0], Backends: make(map[string]string)}
	for _, pair := range args[1:] {
		backend, pkg, ok := strings.Cut(pair, "=")
		if !ok || backend == "" || pkg == "" {
			return fmt.Errorf("mapping %q: want <backend>=<package>", pair)
		}
		entry.Backends[backend] = pkg
	}

	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Registry().Save(entry); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d backend mappings).\n", entry.Name, len(entry.Backends))
	return nil
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	entry, err := eng.Registry().Load(args[0])
	if err != nil {
		return err
	}

	backends := make([]string, 0, len(entry.Backends))
	for b := range entry.Backends {
		backends = append(backends, b)
	}
	sort.Strings(backends)

	fmt.Println(entry.Name)
	for _, b := range backends {
		fmt.Printf("  %-8s %s\n", b, entry.Backends[b])
	}
	return nil
}
