package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a Warden configuration file without starting the service.

Checks performed:
  - YAML syntax
  - Provider tiers, quotas, and purpose tags
  - Failover chains reference configured providers with no duplicates
  - Roles reference configured providers and purposes
  - Governor stale-slot timeout covers the circuit recovery timeout
  - Selector weights sum to 1.0

Examples:
  # Validate the default config
  warden validate

  # Validate a specific file
  warden validate --config /etc/warden/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  providers: %d\n", len(cfg.Providers))
	fmt.Printf("  chains:    %d\n", len(cfg.Chains))
	fmt.Printf("  roles:     %d\n", len(cfg.Roles))
	fmt.Printf("  strategy:  %s\n", cfg.Selector.Strategy)
	return nil
}
