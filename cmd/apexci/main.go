package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"apexci/internal/cli"
	"apexci/internal/cli/commands"
	"apexci/internal/config"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:           "apexci",
		Short:         "Salesforce metadata deploys with Apex test reports",
		Long:          `Deploy Salesforce metadata packages, run the Apex tests as part of the deploy and turn the results into JUnit, Cobertura, HTML and TeamCity reports.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Create initial config with defaults, replaced once the flags are parsed
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(commands.NewEnv(cfg))

	// Register all commands
	cmds.Register(rootCmd, &flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute root command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
