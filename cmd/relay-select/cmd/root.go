package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tetherwrt/tetherwrt/internal/logger"
	"github.com/tetherwrt/tetherwrt/internal/service/selector"
	"github.com/tetherwrt/tetherwrt/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel stores the requested logging level.
	logLevel string

	// rootCmd represents the base command that runs one selection pass.
	rootCmd = &cobra.Command{
		Use:   "relay-select",
		Short: "Pick the active uplink and point the relay at it.",
		Long: `Short-lived selection pass invoked by cron and by interface hotplug events.

Probes the four uplink candidates (5 GHz Wi-Fi, 2.4 GHz Wi-Fi, Android USB,
iPhone USB) for an assigned address, updates the persisted relay
configuration and the uplink indicator LED when something changed, and
restarts the relay daemon when it no longer serves the selected interface.

Safe to invoke repeatedly. A non-blocking lock guards concurrent runs: the
loser exits immediately with status 2 and changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Hotplug storms can outlive a stuck run; let signals end it.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			result, err := selector.Run(ctx, &selector.Options{ConfigPath: configPath})
			if err != nil {
				return err
			}

			logger.InfoKV(ctx, "Run finished", "result", string(result))

			return nil
		},
	}
)

// Execute runs the relay-select CLI. Lock contention exits with status 2 so
// schedulers can tell a skipped run from a failed one.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, selector.ErrLocked) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

// applyLogLevel applies the --log-level flag to the global logger.
func applyLogLevel() {
	if level, ok := logger.ParseLogLevel(logLevel); ok {
		logger.SetLevel(level)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
}
