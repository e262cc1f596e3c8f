// Package main provides the entry point for the revision aid admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"revisionaid/cmd/adm/commands"
	"revisionaid/internal/config"
	"revisionaid/internal/observability"
	"revisionaid/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Disable all OpenTelemetry features for admin CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservabilityWithLevel(&cfg.OpenTelemetry, "revision-adm", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	env := &commands.Env{Config: cfg, Logger: logger}

	rootCmd := &cobra.Command{
		Use:     "adm",
		Short:   "Revision aid administration tool",
		Version: version.Get("adm").String(),
		Long: `Revision aid administration tool

Schema migrations, question bank seeding and account management
against the database named in the configuration.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(commands.DatabaseCommands(env))
	rootCmd.AddCommand(commands.UserCommands(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
