package main

import (
	"fmt"
	"os"

	"mercator-hq/warden/pkg/cli"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	output  string
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - health monitoring and self-healing for the trading stack",
	Long: `Warden watches the trading application and the data it depends on.

Every cycle it evaluates the failure point catalog:
  - Ingestion and trading processes
  - Signal cache existence, freshness and content
  - Per-signal freshness across the entity universe
  - Broker and market data API reachability
  - Order pipeline activity during market hours
  - Adaptive parameters and freeze markers

The results are aggregated into a READY, DEGRADED or BLOCKED verdict, and
detected issues are remediated under a per-signal rate limit.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code for its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json, text")
}
