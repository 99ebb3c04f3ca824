package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/patchseries/internal/domain/commands"
	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

// ApplyController handles the "apply" subcommand.
type ApplyController struct {
	command commands.Apply
	loader  *entities.SettingsLoader
}

// NewApplyController creates a new ApplyController.
func NewApplyController(command commands.Apply, loader *entities.SettingsLoader) *ApplyController {
	return &ApplyController{command: command, loader: loader}
}

// GetBind returns the Cobra command metadata for the apply controller.
func (it *ApplyController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "apply <change>...",
		Short: "Apply changes together with their dependencies",
		Long: `Look up the given changes (Gerrit numbers, Change-Ids or commits,
prefixed with * for the internal remote), resolve each one into a
transaction with its uncommitted dependencies, and cherry-pick the
transactions into the configured checkouts one after the other.

A transaction that fails is rolled back entirely: every touched
checkout is reset to where it was and the other transactions go on.`,
	}
}

// Execute runs the apply mode.
func (it *ApplyController) Execute(cmd *cobra.Command, arguments []string) {
	ctx := context.Background()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	frozen, _ := cmd.Flags().GetBool("frozen")
	honorOrdering, _ := cmd.Flags().GetBool("honor-ordering")

	if len(arguments) == 0 {
		logger.Error("at least one change is required")
		return
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	settings, err := it.loader.Load(cfgPath)
	if err != nil {
		logger.Error(err)
		return
	}

	if _, applyErr := it.command.Execute(ctx, settings, commands.ApplyOptions{
		Changes:       arguments,
		DryRun:        dryRun,
		Verbose:       verbose,
		Frozen:        frozen,
		HonorOrdering: honorOrdering,
	}); applyErr != nil {
		logger.Errorf("Apply failed: %v", applyErr)
	}
}

// AddFlags adds the apply-specific flags to the given Cobra command.
func (it *ApplyController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("frozen", false, "Fail changes that depend on anything not given on the command line")
	cmd.Flags().Bool("honor-ordering", false, "Apply in the given order instead of longest transaction first")
}
