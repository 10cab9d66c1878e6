package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tetherwrt/tetherwrt/internal/service/selector"
	"github.com/tetherwrt/tetherwrt/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string

	// rootCmd represents the base command that prints the relay status.
	rootCmd = &cobra.Command{
		Use:   "relay-status",
		Short: "Show the relay configuration and live uplink probes.",
		Long: `Read-only diagnostic view of the tethering relay.

Prints the persisted relay address and network list, the live address probe
for each uplink candidate, and the state of each uplink indicator LED.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return selector.RunStatus(ctx, &selector.Options{ConfigPath: configPath}, cmd.OutOrStdout())
		},
	}
)

// Execute runs the relay-status CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
}
