package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/logger"
	"github.com/tetherwrt/tetherwrt/internal/service/builder"
	"github.com/tetherwrt/tetherwrt/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel stores the requested logging level.
	logLevel string

	// rootCmd represents the base command that assembles the firmware images.
	rootCmd = &cobra.Command{
		Use:   "relay-build",
		Short: "Assemble the custom firmware images.",
		Long: `Workstation-side firmware assembly.

Downloads the vendor image-builder toolchain and verifies its checksum,
extracts it into the work directory, renders the relay configuration
overlay (network, wireless, firewall, DNS, LEDs, cron schedule, hotplug
hook and the web pages), then invokes the toolchain's make target once per
configured profile to produce the flashable images.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Image builds run for minutes; make them interruptible.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			return builder.Run(ctx, &builder.Options{ConfigPath: configPath})
		},
	}
)

// Execute runs the relay-build CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
}
