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
	Use:   "warden",
	Short: "Warden - admission and failover governance for LLM agent fleets",
	Long: `Warden is a single-process governance authority that agent fleets
consult before every provider call.

It provides:
  - Token budget rate limiting per provider (minute and daily windows)
  - Per-provider circuit breaking with half-open probing
  - Purpose-aware failover chain resolution across capability tiers
  - Per-role concurrency slots with forced cheap-fallback demotion
  - Cost/speed/reliability/capability provider scoring and selection`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
