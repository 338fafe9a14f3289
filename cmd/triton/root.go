package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "triton",
	Short: "Triton - multi-worker HTTP serving supervisor",
	Long: `Triton is a serving supervisor that runs an application behind a
fixed-size pool of single-request workers.

It provides:
  - A shared listening socket served by N workers
  - Per-request error isolation (handler panics become 500s)
  - Automatic replacement of crashed workers
  - Graceful drain on SIGTERM within a configurable grace period
  - Pool resizing at runtime via SIGTTIN/SIGTTOU`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (environment-only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
