package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"unishark/triton/pkg/cli"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration without starting the server",
	Long: `Resolve and validate the effective configuration, then exit.

The check command performs the same configuration resolution as run
(config file plus TRITON_* environment overrides, or environment alone)
but binds no socket and spawns no workers. It exits non-zero with field
errors when the configuration is invalid.

Examples:
  # Check the environment-derived configuration
  triton check

  # Check a config file
  triton check --config /etc/triton/config.yaml`,
	RunE: checkConfig,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Listen:       %s\n", cfg.Server.Addr())
	fmt.Printf("  Workers:      %d\n", cfg.Worker.Count)
	fmt.Printf("  App target:   %s\n", cfg.App.Target)
	fmt.Printf("  Grace period: %s\n", cfg.Server.GracePeriod)
	if cfg.Telemetry.Admin.Enabled {
		fmt.Printf("  Admin:        %s\n", cfg.Telemetry.Admin.ListenAddress)
	}
	return nil
}
