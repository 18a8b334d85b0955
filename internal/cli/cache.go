// internal/cli/cache.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/engine"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the package metadata cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cache entries older than the freshness window",
	RunE:  runCachePurge,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <backend>",
	Short: "Drop every cached entry for one backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidate,
}

var cacheWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch backend state files and invalidate the cache on change",
	Long: `Block and watch known package manager state files (the dpkg status
file, the pacman local database). When one changes, cached entries for
that backend are dropped so the next query refetches.`,
	RunE: runCacheWatch,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheWatchCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	n, err := eng.Store().PurgeExpired(config.FreshnessWindow)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d expired cache entries.\n", n)
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Store().InvalidateBackend(args[0]); err != nil {
		return err
	}
	fmt.Printf("Invalidated cache for backend %s.\n", args[0])
	return nil
}

func runCacheWatch(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	logger.Info("watching backend state files; Ctrl-C to stop")
	return eng.Store().Watch(cmd.Context(), logger)
}
