package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tetherwrt/tetherwrt/internal/lockfile"
	"github.com/tetherwrt/tetherwrt/internal/service/updater"
	"github.com/tetherwrt/tetherwrt/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// installDir stores where the router-side binaries live.
	installDir string

	// rootCmd represents the base command that self-updates the binaries.
	rootCmd = &cobra.Command{
		Use:   "relay-update",
		Short: "Update the router-side binaries from the update folder.",
		Long: `Fetches the version manifest from the configured update folder, compares
SHA256 checksums with the installed files and downloads and applies only
the files that changed. Concurrent runs are skipped, not queued.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return updater.Run(ctx, &updater.Options{
				ConfigPath: configPath,
				InstallDir: installDir,
			})
		},
	}
)

// Execute runs the relay-update CLI. Lock contention exits with status 2,
// matching relay-select.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&installDir, "install-dir", "d", "/usr/bin", "directory holding the installed binaries")
}
