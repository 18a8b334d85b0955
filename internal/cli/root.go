// internal/cli/root.go

// Package cli implements the omni command-line front end. It is thin
// plumbing around the engine: argument parsing, logger setup, and result
// formatting live here and nowhere else.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/core"
)

var (
	cfgFile     string
	backendFlag string
	verbose     bool
	config      *core.Config
	logger      *log.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "omni",
	Short: "Transactional package operations across package managers",
	Long: `omni - a single operation surface over apt, brew, pacman, winget and nix.

Multi-package operations run as transactions: either every step commits,
or the reversible ones are rolled back and the rest are reported exactly.`,
	Version: "0.2.0",
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/omni/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "pin all requested packages to one backend (apt, brew, pacman, winget, nix)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(platformCmd)
	rootCmd.AddCommand(registryCmd)
}

func initConfig() {
	// .env before config so OMNI_* variables can steer path resolution.
	_ = godotenv.Load()

	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}
	if verbose {
		config.Debug = true
	}

	level := log.InfoLevel
	if config.Debug {
		level = log.DebugLevel
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
