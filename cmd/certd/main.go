// Command certd serves the catch certificate submission API and offers operator
// commands to pre-check and submit certificates from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg             *config.Config
	logger          *zap.Logger
	shutdownTracing telemetry.Shutdown
)

var rootCmd = &cobra.Command{
	Use:   "certd",
	Short: "Catch certificate validation and submission service",
	Long: `certd validates catch certificate landings, merges unsaved session edits with
persisted payloads, and submits certificates to the rule engine.

Small certificates are validated synchronously. Large ones are validated in the
background and the exporter is told the verdict by email.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		logger, err = logging.Initialize(cfg.Logging)
		if err != nil {
			return err
		}
		shutdownTracing, err = telemetry.Setup(cmd.Context(), cfg.Telemetry, cfg.Name, cfg.Version)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTracing != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := shutdownTracing(ctx); err != nil {
				logging.Get(logging.CategoryBoot).Warn("Trace flush failed: %v", err)
			}
			cancel()
		}
		if logger != nil {
			logging.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "certd.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, precheckCmd, submitCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
