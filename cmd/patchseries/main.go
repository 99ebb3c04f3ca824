package main

import (
	"context"
	"os"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/patchseries/internal"
	"github.com/rios0rios0/patchseries/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// flagged is implemented by controllers that declare their own flags.
type flagged interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "patchseries",
		Short: "Resolve and apply review changes with their dependencies",
		Long: `Resolves pending Gerrit changes into transactions holding every change
they depend on (parent commits and CQ-DEPEND declarations), then applies
each transaction to the local checkouts atomically: either all of its
changes land or every touched checkout is rolled back.

Usage:
  patchseries plan 1234 *5678    Show the transactions for two changes
  patchseries apply 1234         Cherry-pick a change and its dependencies`,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			telemetry.Shutdown(ctx)
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().Bool("dry-run", false,
		"Show what would be done without making changes")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		if fc, ok := ctrl.(flagged); ok {
			fc.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	if err := telemetry.Init(context.Background(), "patchseries"); err != nil {
		logger.Warnf("Tracing disabled: %v", err)
	}

	cobraRoot := buildRootCommand()

	appContext, err := injectAppContext()
	if err != nil {
		logger.Fatalf("Error wiring 'patchseries': %s", err)
	}
	addSubcommands(cobraRoot, appContext)

	if err = cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'patchseries': %s", err)
	}
}
