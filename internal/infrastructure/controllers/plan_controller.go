package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/patchseries/internal/domain/commands"
	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

// PlanController handles the "plan" subcommand.
type PlanController struct {
	command commands.Plan
	loader  *entities.SettingsLoader
}

// NewPlanController creates a new PlanController.
func NewPlanController(command commands.Plan, loader *entities.SettingsLoader) *PlanController {
	return &PlanController{command: command, loader: loader}
}

// GetBind returns the Cobra command metadata for the plan controller.
func (it *PlanController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "plan <change>...",
		Short: "Show the transactions changes resolve to",
		Long: `Resolve the given changes into transactions without fetching or
applying anything. With --disjoint, overlapping transactions are merged
and --max-length defers the roots that would make one too long.`,
	}
}

// Execute runs the plan mode.
func (it *PlanController) Execute(cmd *cobra.Command, arguments []string) {
	ctx := context.Background()

	verbose, _ := cmd.Flags().GetBool("verbose")
	disjoint, _ := cmd.Flags().GetBool("disjoint")
	maxLength, _ := cmd.Flags().GetInt("max-length")
	dependMap, _ := cmd.Flags().GetBool("depend-map")
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

	if _, planErr := it.command.Execute(ctx, settings, commands.PlanOptions{
		Changes:       arguments,
		Verbose:       verbose,
		Disjoint:      disjoint,
		MaxLength:     maxLength,
		DependMap:     dependMap,
		HonorOrdering: honorOrdering,
	}); planErr != nil {
		logger.Errorf("Plan failed: %v", planErr)
	}
}

// AddFlags adds the plan-specific flags to the given Cobra command.
func (it *PlanController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("disjoint", false, "Merge overlapping transactions into disjoint ones")
	cmd.Flags().Int("max-length", 0, "With --disjoint, maximum number of changes per transaction (0: no limit)")
	cmd.Flags().Bool("depend-map", false, "Also print which changes depend on each change")
	cmd.Flags().Bool("honor-ordering", false, "Keep the given order instead of longest transaction first")
}
