package entities

import "github.com/spf13/cobra"

// ControllerBind carries the Cobra metadata of a subcommand.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is a CLI entry point bound to one subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(command *cobra.Command, arguments []string)
}
